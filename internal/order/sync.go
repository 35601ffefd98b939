package order

import (
	"context"
	"fmt"

	"countroom/internal/recon/lifecycle"
	"countroom/pkg/requestcontext"
)

// Sync advances an order's external status following the transition policy:
// forward-only, except that terminal codes always win.
type Sync struct {
	store Store
}

// NewSync builds the status sync over the given store.
func NewSync(store Store) *Sync {
	return &Sync{store: store}
}

// AdvanceStatus applies the target status code if the policy permits it.
// A regressive non-terminal target is a silent no-op, mirroring the fact
// that a slower writer may report an earlier phase after a later one.
func (s *Sync) AdvanceStatus(ctx context.Context, orderID int64, target int) error {
	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}
	if !lifecycle.SyncDecision(o.Status, target) {
		return nil
	}
	if err := s.store.UpdateStatus(ctx, orderID, target, requestcontext.Now(ctx)); err != nil {
		return fmt.Errorf("update order %d status: %w", orderID, err)
	}
	return nil
}
