package incident

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"countroom/internal/recon/models"
	"countroom/pkg/platform/sentinel"
)

// InMemory is the in-process incident store.
type InMemory struct {
	mu        sync.RWMutex
	incidents map[int64]*models.Incident
	nextID    int64
}

// NewInMemory builds an empty in-memory incident store.
func NewInMemory() *InMemory {
	return &InMemory{incidents: make(map[int64]*models.Incident), nextID: 1}
}

func (s *InMemory) Create(_ context.Context, i *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.nextID
	s.nextID++
	cp := *i
	s.incidents[i.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident %d: %w", id, sentinel.ErrNotFound)
	}
	cp := *i
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, i *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[i.ID]; !ok {
		return fmt.Errorf("incident %d: %w", i.ID, sentinel.ErrNotFound)
	}
	cp := *i
	s.incidents[i.ID] = &cp
	return nil
}

func (s *InMemory) ListByTransaction(_ context.Context, transactionID int64) ([]*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Incident
	for _, i := range s.incidents {
		if i.TransactionID == transactionID {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}
