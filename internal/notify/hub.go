package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/and161185/formsync/internal/service"
)

const (
	pingPeriod   = 20 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 16
)

type subscriber struct {
	conn *websocket.Conn
	send chan Message
}

// Hub broadcasts events to connected websocket clients. Each subscriber has its
// own writer; Emit only enqueues and drops messages for subscribers that lag.
type Hub struct {
	origins []string
	log     *zap.Logger
	gauge   prometheus.Gauge

	mu      sync.RWMutex
	subs    map[uuid.UUID]*subscriber
	dropped atomic.Int64
}

var _ service.Notifier = (*Hub)(nil)

// NewHub constructs a hub accepting the given origin patterns. gauge may be nil.
func NewHub(origins []string, log *zap.Logger, gauge prometheus.Gauge) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{origins: origins, log: log.Named("ws"), gauge: gauge, subs: map[uuid.UUID]*subscriber{}}
}

// ServeHTTP upgrades the request and runs the subscriber's writer until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn("accept websocket", zap.Error(err))
		return
	}
	defer c.CloseNow()

	id := uuid.Must(uuid.NewV4())
	sub := &subscriber{conn: c, send: make(chan Message, sendBuffer)}
	h.add(id, sub)
	defer h.remove(id)
	h.log.Debug("subscriber connected", zap.String("conn_id", id.String()))

	ctx := c.CloseRead(r.Context())
	if err := h.writeLoop(ctx, sub); err != nil {
		h.log.Debug("subscriber dropped", zap.String("conn_id", id.String()), zap.Error(err))
		c.Close(websocket.StatusGoingAway, "write failed")
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) add(id uuid.UUID, s *subscriber) {
	h.mu.Lock()
	h.subs[id] = s
	n := len(h.subs)
	h.mu.Unlock()
	h.setGauge(n)
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()
	h.setGauge(n)
}

func (h *Hub) setGauge(n int) {
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
}

// writeLoop delivers queued messages and pings. It returns nil when ctx ends.
func (h *Hub) writeLoop(ctx context.Context, s *subscriber) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, s.conn, msg)
			cancel()
			if err != nil {
				return fmt.Errorf("write %s: %w", msg.Event, err)
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// Count reports connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped reports messages discarded because a subscriber queue was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Emit queues the event for every subscriber without waiting for delivery.
func (h *Hub) Emit(_ context.Context, event string, payload any) {
	msg := newMessage(event, payload)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, s := range h.subs {
		select {
		case s.send <- msg:
		default:
			h.dropped.Add(1)
			h.log.Warn("subscriber queue full, event dropped",
				zap.String("event", event), zap.String("conn_id", id.String()))
		}
	}
}
