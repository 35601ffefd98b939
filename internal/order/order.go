// Package order tracks the originating order records whose status shadows
// the reconciliation lifecycle. Order creation belongs to an upstream
// system; this package holds the records and the best-effort status sync.
package order

import (
	"context"
	"time"
)

// Order is the originating shipment order referenced by a transaction.
type Order struct {
	ID        int64     `json:"id"`
	ClientRef string    `json:"client_ref"`
	BranchRef string    `json:"branch_ref,omitempty"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists order records.
type Store interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id int64) (*Order, error)
	// UpdateStatus sets the status unconditionally; the advance-only rule
	// lives in the sync service, not in the store.
	UpdateStatus(ctx context.Context, id int64, status int, now time.Time) error
}
