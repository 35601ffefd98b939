package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"countroom/pkg/platform/sentinel"
)

// InMemory is the in-process order store used by tests and by deployments
// without a database.
type InMemory struct {
	mu     sync.RWMutex
	orders map[int64]*Order
	nextID int64
}

// NewInMemory builds an empty in-memory order store.
func NewInMemory() *InMemory {
	return &InMemory{orders: make(map[int64]*Order), nextID: 1}
}

func (s *InMemory) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.nextID
		s.nextID++
	} else if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("order %d: %w", o.ID, sentinel.ErrConflict)
	} else if o.ID >= s.nextID {
		s.nextID = o.ID + 1
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, sentinel.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *InMemory) UpdateStatus(_ context.Context, id int64, status int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, sentinel.ErrNotFound)
	}
	o.Status = status
	o.UpdatedAt = now
	return nil
}
