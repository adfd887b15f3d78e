package flow

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no flow exists for the requested id.
var ErrNotFound = errors.New("flow not found")

// Repository loads flow definitions. Implementations must treat flows as
// read-only: the engine never writes back.
type Repository interface {
	GetFlow(ctx context.Context, id string) (*Flow, error)
}

// MemoryRepository is a map-backed Repository, used in tests and for flows
// registered at startup.
type MemoryRepository struct {
	flows map[string]*Flow
}

func NewMemoryRepository(flows ...*Flow) *MemoryRepository {
	r := &MemoryRepository{flows: make(map[string]*Flow)}
	for _, f := range flows {
		r.Register(f)
	}
	return r
}

func (r *MemoryRepository) Register(f *Flow) {
	r.flows[f.ID] = f
}

func (r *MemoryRepository) GetFlow(_ context.Context, id string) (*Flow, error) {
	f, ok := r.flows[id]
	if !ok {
		return nil, fmt.Errorf("flow %s: %w", id, ErrNotFound)
	}
	return f, nil
}
