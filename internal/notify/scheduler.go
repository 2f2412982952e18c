package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/and161185/formsync/internal/service"
)

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debugw(msg, kv...) }
func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Errorw(msg, append(kv, "error", err)...)
}

// Scheduler periodically tells clients to pull.
type Scheduler struct {
	cron *cron.Cron
	n    service.Notifier
	now  func() time.Time
}

// NewScheduler registers the sync broadcast under spec, e.g. "@hourly".
func NewScheduler(spec string, n service.Notifier, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = "@hourly"
	}
	cl := cronLogger{l: log.Named("cron").Sugar()}
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		n:    n,
		now:  time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.Tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Tick emits one sync.scheduled event.
func (s *Scheduler) Tick() {
	s.n.Emit(context.Background(), service.EventSyncScheduled, map[string]string{
		"message":   "scheduled sync",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the schedule and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }
