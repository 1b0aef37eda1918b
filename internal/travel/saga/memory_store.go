package saga

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps saga instances in memory. It honors the conditional-save
// contract, so it is safe for concurrent use, but does not survive restarts.
type MemoryStore struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*Instance
}

// NewMemoryStore constructs an empty in-memory instance store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[uuid.UUID]*Instance)}
}

func (s *MemoryStore) Create(ctx context.Context, inst *Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.CorrelationID]; ok {
		return ErrAlreadyExists
	}
	s.instances[inst.CorrelationID] = inst.Clone()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, correlationID uuid.UUID) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[correlationID]
	if !ok {
		return nil, ErrNotFound
	}
	return inst.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, inst *Instance, expected State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.instances[inst.CorrelationID]
	if !ok {
		return ErrNotFound
	}
	if stored.CurrentState != expected {
		return ErrStateConflict
	}
	s.instances[inst.CorrelationID] = inst.Clone()
	return nil
}
