package service

import (
	"context"

	"countroom/internal/recon/lifecycle"
	"countroom/internal/recon/models"
	"countroom/pkg/platform/audit"
	"countroom/pkg/requestcontext"
)

// Transition advances the transaction lifecycle: enqueue for counting, enter
// a counting phase, submit for review, approve, reject or cancel. The
// transition policy is consulted first; approval and rejection re-derive the
// final totals before persisting so the reviewed difference is never stale.
func (s *Service) Transition(ctx context.Context, transactionID int64, target models.TransactionState, userID int64) (*models.Transaction, error) {
	t, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	from := t.State
	if err := lifecycle.Validate(from, target); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if target.IsCounting() && t.CountingStartedAt == nil {
		at := now
		t.CountingStartedAt = &at
	}
	if target == models.StatePendingReview && t.CountingEndedAt == nil {
		at := now
		t.CountingEndedAt = &at
	}
	if target == models.StateApproved || target == models.StateRejected {
		if err := s.computeTotals(ctx, t); err != nil {
			return nil, err
		}
		t.ReviewedBy = userID
		at := now
		t.ReviewedAt = &at
	}

	t.State = target
	if err := s.updateTransaction(ctx, t); err != nil {
		return nil, err
	}

	s.syncOrderStatus(ctx, t.OrderID, lifecycle.OrderStatusCode(target))

	if s.metrics != nil {
		s.metrics.IncrementTransition(string(target))
	}
	s.emit(ctx, audit.Event{
		TransactionID: t.ID,
		Action:        audit.ActionTransition,
		ActorID:       userID,
		FromState:     string(from),
		ToState:       string(target),
		RequestID:     requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "transaction transitioned",
		"transaction_id", t.ID, "from", from, "to", target)

	return t, nil
}
