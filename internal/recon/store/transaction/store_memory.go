package transaction

import (
	"context"
	"fmt"
	"sync"

	"countroom/internal/recon/models"
	"countroom/pkg/platform/sentinel"
)

// InMemory is the in-process transaction store. Updates are guarded by the
// transaction's version so concurrent recalculations cannot interleave, the
// same discipline the Postgres store gets from its conditional UPDATE.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[int64]*models.Transaction
	byOrder map[int64]int64
	nextID  int64
}

// NewInMemory builds an empty in-memory transaction store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[int64]*models.Transaction),
		byOrder: make(map[int64]int64),
		nextID:  1,
	}
}

func (s *InMemory) Create(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byOrder[t.OrderID]; exists {
		return fmt.Errorf("transaction for order %d: %w", t.OrderID, sentinel.ErrConflict)
	}
	t.ID = s.nextID
	s.nextID++
	cp := *t
	s.byID[t.ID] = &cp
	s.byOrder[t.OrderID] = t.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, sentinel.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (s *InMemory) FindByOrderID(_ context.Context, orderID int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOrder[orderID]
	if !ok {
		return nil, fmt.Errorf("transaction for order %d: %w", orderID, sentinel.ErrNotFound)
	}
	cp := *s.byID[id]
	return &cp, nil
}

// Update writes the transaction back if the caller's version matches the
// stored one, then bumps the version. A mismatch means another writer won
// the race; the caller surfaces the conflict rather than retrying blindly.
func (s *InMemory) Update(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[t.ID]
	if !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, sentinel.ErrNotFound)
	}
	if current.Version != t.Version {
		return fmt.Errorf("transaction %d: %w", t.ID, sentinel.ErrVersionMismatch)
	}
	t.Version++
	cp := *t
	s.byID[t.ID] = &cp
	return nil
}
