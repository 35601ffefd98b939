package container

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"countroom/internal/recon/models"
	"countroom/pkg/platform/sentinel"
)

// InMemory is the in-process container store. One lock covers container rows
// and their value-detail lines, so SaveWithDetails is atomic the same way
// the Postgres store's transaction makes it.
type InMemory struct {
	mu         sync.RWMutex
	containers map[int64]*models.Container
	details    map[int64][]models.ValueDetail
	nextID     int64
	nextDetail int64
}

// NewInMemory builds an empty in-memory container store.
func NewInMemory() *InMemory {
	return &InMemory{
		containers: make(map[int64]*models.Container),
		details:    make(map[int64][]models.ValueDetail),
		nextID:     1,
		nextDetail: 1,
	}
}

// SaveWithDetails upserts the container and replaces its full value-detail
// set in one atomic step. Prior lines are discarded, never merged.
func (s *InMemory) SaveWithDetails(_ context.Context, c *models.Container, details []models.ValueDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.containers {
		if other.TransactionID == c.TransactionID && other.Code == c.Code && other.ID != c.ID {
			return fmt.Errorf("container code %q in transaction %d: %w", c.Code, c.TransactionID, sentinel.ErrConflict)
		}
	}

	if c.ID == 0 {
		c.ID = s.nextID
		s.nextID++
	} else if _, ok := s.containers[c.ID]; !ok {
		return fmt.Errorf("container %d: %w", c.ID, sentinel.ErrNotFound)
	}

	replaced := make([]models.ValueDetail, len(details))
	for i, d := range details {
		d.ID = s.nextDetail
		s.nextDetail++
		d.ContainerID = c.ID
		replaced[i] = d
	}
	s.details[c.ID] = replaced

	cp := *c
	cp.Details = nil
	cp.Children = nil
	cp.Incidents = nil
	s.containers[c.ID] = &cp

	c.Details = append([]models.ValueDetail(nil), replaced...)
	return nil
}

// UpdateCountedValue refreshes one node's rolled-up counted value; used when
// a child save cascades through its ancestors.
func (s *InMemory) UpdateCountedValue(_ context.Context, containerID int64, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[containerID]
	if !ok {
		return fmt.Errorf("container %d: %w", containerID, sentinel.ErrNotFound)
	}
	c.CountedValue = decimal.NewNullDecimal(value)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, fmt.Errorf("container %d: %w", id, sentinel.ErrNotFound)
	}
	cp := *c
	cp.Details = append([]models.ValueDetail(nil), s.details[id]...)
	return &cp, nil
}

// FindDetail looks up a single value-detail line by id across containers.
func (s *InMemory) FindDetail(_ context.Context, id int64) (*models.ValueDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lines := range s.details {
		for _, d := range lines {
			if d.ID == id {
				cp := d
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("value detail %d: %w", id, sentinel.ErrNotFound)
}

// ListByTransaction returns the transaction's containers ordered by id with
// value-detail lines attached.
func (s *InMemory) ListByTransaction(_ context.Context, transactionID int64) ([]*models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Container
	for _, c := range s.containers {
		if c.TransactionID != transactionID {
			continue
		}
		cp := *c
		cp.Details = append([]models.ValueDetail(nil), s.details[c.ID]...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
