// Command formsync-server starts the formsync HTTP API and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/formsync/internal/config"
	"github.com/and161185/formsync/internal/limiter"
	"github.com/and161185/formsync/internal/metrics"
	"github.com/and161185/formsync/internal/migrate"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/notify"
	"github.com/and161185/formsync/internal/repository/postgres"
	grpcserver "github.com/and161185/formsync/internal/server/grpc"
	httpserver "github.com/and161185/formsync/internal/server/http"
	"github.com/and161185/formsync/internal/service"
	"github.com/and161185/formsync/internal/validate"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

// main parses configuration, runs migrations, and serves HTTP and gRPC health until a signal arrives.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("grpcAddr", cfg.GRPCAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns:         int32(cfg.DBMaxConns),
		MinConns:         int32(cfg.DBMinConns),
		StatementTimeout: cfg.StatementTimeout,
	})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	m := metrics.New()

	// Notifiers
	hub := notify.NewHub(cfg.WSOrigins, logger, m.WSSubscribers)
	notifiers := notify.Fanout{hub}
	if cfg.AMQPURL != "" {
		relay, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Fatal("connect amqp", zap.Error(err))
		}
		defer func() { _ = relay.Close() }()
		notifiers = append(notifiers, relay)
	}

	// Repositories
	users := postgres.NewUserRepo(db)
	roles := postgres.NewRoleRepo(db)
	products := postgres.NewProductRepo(db)
	forms := postgres.NewFormRepo(db)
	sections := postgres.NewSectionRepo(db)
	fields := postgres.NewFieldRepo(db)
	answers := postgres.NewAnswerRepo(db)

	lim := limiter.NewPG(db.Pool, limiter.Policy{
		Window:   cfg.LoginWindow,
		MaxFails: cfg.LoginMaxFails,
		BlockFor: cfg.LoginBlockFor,
	})

	// Services
	v := validate.New()
	userSvc := service.NewUserService(users, roles, v)
	if cfg.AdminPassword != "" {
		created, err := userSvc.EnsureAdmin(ctx, model.NewUser{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			logger.Fatal("bootstrap administrator", zap.Error(err))
		}
		if created {
			logger.Info("bootstrap administrator created", zap.String("username", cfg.AdminUsername))
		}
	}
	api := httpserver.New(httpserver.Deps{
		Auth:     service.NewAuthService(users, []byte(cfg.JWTSecret), cfg.AccessTTL, lim, logger),
		Users:    userSvc,
		Roles:    service.NewRoleService(roles),
		Products: service.NewProductService(products, v, notifiers),
		Sync:     service.NewSyncService(products, users, v, notifiers, logger, cfg.MaxBatch),
		Forms:    service.NewFormService(forms, sections, fields, v),
		Answers:  service.NewAnswerService(answers),
		Hub:      hub,
		Metrics:  m,
		Ping:     db.Ping,
		Log:      logger,
	})

	sched, err := notify.NewScheduler(cfg.SyncSchedule, notifiers, logger)
	if err != nil {
		logger.Fatal("sync schedule", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	// gRPC health
	health := grpcserver.NewHealth(db.Ping, 10*time.Second, logger)
	go health.Run(ctx)
	gs := grpcserver.NewServer(health, logger)
	if cfg.Dev {
		reflection.Register(gs)
	}
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen grpc", zap.Error(err))
	}

	hs := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening (grpc)", zap.String("addr", cfg.GRPCAddr))
		errCh <- gs.Serve(lis)
	}()
	go func() {
		logger.Info("listening (http)", zap.String("addr", cfg.HTTPAddr))
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-sctx.Done():
		gs.Stop()
	}

	logger.Info("shutdown complete")
}
