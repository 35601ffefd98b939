// Package identity resolves user ids to display names for review views.
package identity

import (
	"context"
	"fmt"
	"sync"
)

// PlaceholderName is returned when a user id cannot be resolved. Resolution
// never fails the surrounding operation.
const PlaceholderName = "unknown user"

// Resolver maps a user id to a display name.
type Resolver interface {
	DisplayName(ctx context.Context, userID int64) string
}

// Static resolves from an in-memory map.
type Static struct {
	mu    sync.RWMutex
	names map[int64]string
}

// NewStatic builds a static resolver from the given names.
func NewStatic(names map[int64]string) *Static {
	if names == nil {
		names = make(map[int64]string)
	}
	return &Static{names: names}
}

// Add registers a display name for a user id.
func (s *Static) Add(userID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[userID] = name
}

func (s *Static) DisplayName(_ context.Context, userID int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name, ok := s.names[userID]; ok {
		return name
	}
	if userID == 0 {
		return PlaceholderName
	}
	return fmt.Sprintf("%s (%d)", PlaceholderName, userID)
}
