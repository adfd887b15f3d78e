// Package callback dials back callers who requested a callback instead of
// waiting in queue. A cron sweeper drains the pending log and places
// outbound calls through the telephony provider.
package callback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Request is one pending callback.
type Request struct {
	ID          string
	Tenant      string
	CallSID     string
	Number      string
	RequestedAt time.Time
}

// Store hands out pending callbacks and records their outcome. An entry
// leaves the pending set after its first dial attempt, successful or not.
type Store interface {
	Pending(ctx context.Context) ([]Request, error)
	MarkDialed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// Dialer places an outbound call to the given number.
type Dialer interface {
	Dial(ctx context.Context, tenant, number string) error
}

// Config holds the sweeper configuration.
type Config struct {
	// Schedule is a standard five-field cron expression.
	Schedule string `yaml:"schedule" default:"*/1 * * * *" validate:"required"`
}

// Sweeper periodically drains pending callbacks. Each entry is dialed at
// most once: a failed dial is logged and marked failed, never retried. A
// caller missed during a provider outage can request another callback.
type Sweeper struct {
	store  Store
	dialer Dialer
	logger *slog.Logger
	cron   *cron.Cron
}

func NewSweeper(store Store, dialer Dialer, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  store,
		dialer: dialer,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start(cfg Config) error {
	if _, err := s.cron.AddFunc(cfg.Schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep dials every pending callback once.
func (s *Sweeper) Sweep(ctx context.Context) {
	pending, err := s.store.Pending(ctx)
	if err != nil {
		s.logger.Error("pending callbacks read failed", "error", err)
		return
	}

	for _, req := range pending {
		if err := s.dialer.Dial(ctx, req.Tenant, req.Number); err != nil {
			s.logger.Error("callback dial failed",
				"callback", req.ID,
				"number", req.Number,
				"error", err)
			if err := s.store.MarkFailed(ctx, req.ID); err != nil {
				s.logger.Error("callback failure write failed", "callback", req.ID, "error", err)
			}
			continue
		}
		if err := s.store.MarkDialed(ctx, req.ID); err != nil {
			s.logger.Error("callback completion write failed", "callback", req.ID, "error", err)
			continue
		}
		s.logger.Info("callback dialed", "callback", req.ID, "number", req.Number)
	}
}

// MemoryStore is a Store for single-instance deployments and tests. It also
// satisfies the engine's callback log, so flows can feed it directly.
type MemoryStore struct {
	mu      sync.Mutex
	pending []Request
	failed  []Request
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// RequestCallback records a caller for the sweeper to dial later.
func (m *MemoryStore) RequestCallback(_ context.Context, tenant, callSID, number string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, Request{
		ID:          uuid.New().String(),
		Tenant:      tenant,
		CallSID:     callSID,
		Number:      number,
		RequestedAt: time.Now(),
	})
	return nil
}

func (m *MemoryStore) Pending(context.Context) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.pending))
	copy(out, m.pending)
	return out, nil
}

func (m *MemoryStore) MarkDialed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(id)
	return nil
}

func (m *MemoryStore) MarkFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req, ok := m.remove(id); ok {
		m.failed = append(m.failed, req)
	}
	return nil
}

// Failed lists entries whose dial attempt failed.
func (m *MemoryStore) Failed() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.failed))
	copy(out, m.failed)
	return out
}

func (m *MemoryStore) remove(id string) (Request, bool) {
	for i, req := range m.pending {
		if req.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return req, true
		}
	}
	return Request{}, false
}
