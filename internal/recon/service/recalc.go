package service

import (
	"context"

	"github.com/shopspring/decimal"

	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
)

// RecalcTotals re-derives the transaction's counted total and net difference
// from container and incident state and persists them. It is idempotent:
// with no intervening writes, repeated calls yield identical totals. Totals
// are never incrementally patched, to avoid drift.
func (s *Service) RecalcTotals(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	t, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.State.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeFinalState,
			"transaction %d is %s; totals are frozen", t.ID, t.State)
	}
	if err := s.recalcLoaded(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// recalcLoaded computes and persists totals for an already-loaded
// transaction. The read-then-write is guarded by the transaction's version
// so two concurrent recalculations cannot interleave into a stale total.
func (s *Service) recalcLoaded(ctx context.Context, t *models.Transaction) error {
	if err := s.computeTotals(ctx, t); err != nil {
		return err
	}
	return s.updateTransaction(ctx, t)
}

// computeTotals fills in the counted total and net difference without
// persisting: the counted total is the sum of root containers' counted
// values, and the difference nets the approved incident effect against the
// declared total.
func (s *Service) computeTotals(ctx context.Context, t *models.Transaction) error {
	containers, err := s.containers.ListByTransaction(ctx, t.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load container tree")
	}
	counted := decimal.Zero
	for _, c := range containers {
		if c.ParentID == 0 && c.CountedValue.Valid {
			counted = counted.Add(c.CountedValue.Decimal)
		}
	}

	effect, err := s.approvedEffectForTransaction(ctx, t.ID)
	if err != nil {
		return err
	}

	t.ApplyTotals(counted, effect)
	return nil
}
