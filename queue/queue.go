// Package queue tracks live queue membership so flows can gate on occupancy
// and average wait. Counters are shared across engine instances, so the
// backing store must update them atomically.
package queue

import (
	"context"
	"sync"
	"time"
)

// Store is the write side the transport layer drives: callers enter a queue
// when enqueue markup is emitted and leave when the provider reports the
// bridge or hangup. The read side is the engine's QueueStats.
type Store interface {
	Enter(ctx context.Context, tenant, queue, callSID string) error
	Leave(ctx context.Context, tenant, queue, callSID string) error
	Occupancy(ctx context.Context, tenant, queue string) (int, error)
	AverageWait(ctx context.Context, tenant, queue string) (time.Duration, error)
}

// Memory is a mutex-guarded Store for single-instance deployments and tests.
type Memory struct {
	mu      sync.Mutex
	waiting map[string]map[string]time.Time // tenant/queue -> callSID -> entered
	clock   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		waiting: make(map[string]map[string]time.Time),
		clock:   time.Now,
	}
}

// SetClock pins the wait clock. Test helper.
func (m *Memory) SetClock(clock func() time.Time) {
	m.clock = clock
}

func queueKey(tenant, queue string) string {
	return tenant + "/" + queue
}

func (m *Memory) Enter(_ context.Context, tenant, queue, callSID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := queueKey(tenant, queue)
	if m.waiting[key] == nil {
		m.waiting[key] = make(map[string]time.Time)
	}
	if _, waiting := m.waiting[key][callSID]; !waiting {
		m.waiting[key][callSID] = m.clock()
	}
	return nil
}

func (m *Memory) Leave(_ context.Context, tenant, queue, callSID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.waiting[queueKey(tenant, queue)], callSID)
	return nil
}

func (m *Memory) Occupancy(_ context.Context, tenant, queue string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting[queueKey(tenant, queue)]), nil
}

func (m *Memory) AverageWait(_ context.Context, tenant, queue string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.waiting[queueKey(tenant, queue)]
	if len(entries) == 0 {
		return 0, nil
	}
	now := m.clock()
	var total time.Duration
	for _, entered := range entries {
		total += now.Sub(entered)
	}
	return total / time.Duration(len(entries)), nil
}
