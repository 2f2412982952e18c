// Package grpcserver serves the standard gRPC health service backed by a database ping.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health entry reported next to the overall ("") status.
const ServiceName = "formsync"

const defaultProbeInterval = 10 * time.Second

// Health keeps the health server in step with the database.
type Health struct {
	hs       *health.Server
	ping     func(ctx context.Context) error
	interval time.Duration
	log      *zap.Logger
}

// NewHealth starts in NOT_SERVING until the first successful probe.
func NewHealth(ping func(ctx context.Context) error, interval time.Duration, log *zap.Logger) *Health {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Health{hs: health.NewServer(), ping: ping, interval: interval, log: log.Named("health")}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *Health) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
}

// Probe pings the database once and records the result.
func (h *Health) Probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		h.log.Warn("database ping failed", zap.Error(err))
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
}

// Run probes until ctx ends, then marks every service as shutting down.
func (h *Health) Run(ctx context.Context) {
	h.Probe(ctx)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.hs.Shutdown()
			return
		case <-t.C:
			h.Probe(ctx)
		}
	}
}

// NewServer builds a gRPC server with recovery and logging interceptors and the health service.
func NewServer(h *Health, log *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.hs)
	return s
}
