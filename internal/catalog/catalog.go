// Package catalog exposes the read-only lookups the reconciliation engine
// consumes: incident types, denominations and quality codes. The master data
// itself is maintained elsewhere; this package only resolves.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"countroom/pkg/platform/sentinel"
)

// Category classifies incident types.
type Category string

const (
	CategoryShortage      Category = "shortage"
	CategoryOverage       Category = "overage"
	CategoryCounterfeit   Category = "counterfeit"
	CategoryDamaged       Category = "damaged"
	CategoryDocumentation Category = "documentation"
)

// IncidentType is the resolved form of an incident-type code.
type IncidentType struct {
	ID       int64    `json:"id"`
	Code     string   `json:"code"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
}

// Resolver is the lookup surface the engine depends on. Not-found lookups
// return sentinel.ErrNotFound (wrapped); services translate it to an
// unknown-reference domain error.
type Resolver interface {
	ResolveIncidentType(ctx context.Context, code string) (IncidentType, error)
	ResolveDenomination(ctx context.Context, id int64) (decimal.Decimal, error)
	ResolveQuality(ctx context.Context, id int64) (string, error)
}

// Static resolves against in-memory maps seeded at construction.
type Static struct {
	mu            sync.RWMutex
	incidentTypes map[string]IncidentType
	denominations map[int64]decimal.Decimal
	qualities     map[int64]string
}

// NewStatic builds an empty static resolver; seed with the Add* methods.
func NewStatic() *Static {
	return &Static{
		incidentTypes: make(map[string]IncidentType),
		denominations: make(map[int64]decimal.Decimal),
		qualities:     make(map[int64]string),
	}
}

// AddIncidentType registers an incident type under its code.
func (s *Static) AddIncidentType(t IncidentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidentTypes[strings.ToLower(t.Code)] = t
}

// AddDenomination registers a denomination face value under its id.
func (s *Static) AddDenomination(id int64, faceValue decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denominations[id] = faceValue
}

// AddQuality registers a quality label under its id.
func (s *Static) AddQuality(id int64, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualities[id] = label
}

func (s *Static) ResolveIncidentType(_ context.Context, code string) (IncidentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.incidentTypes[strings.ToLower(code)]
	if !ok {
		return IncidentType{}, fmt.Errorf("incident type %q: %w", code, sentinel.ErrNotFound)
	}
	return t, nil
}

func (s *Static) ResolveDenomination(_ context.Context, id int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.denominations[id]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("denomination %d: %w", id, sentinel.ErrNotFound)
	}
	return v, nil
}

func (s *Static) ResolveQuality(_ context.Context, id int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	label, ok := s.qualities[id]
	if !ok {
		return "", fmt.Errorf("quality %d: %w", id, sentinel.ErrNotFound)
	}
	return label, nil
}
