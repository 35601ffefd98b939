package service

import (
	"context"
	"errors"

	"countroom/internal/recon/lifecycle"
	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
	"countroom/pkg/platform/audit"
	"countroom/pkg/platform/sentinel"
	"countroom/pkg/requestcontext"
)

// CheckinInput carries everything needed to receive a shipment.
type CheckinInput struct {
	OrderID  int64                 `json:"order_id"`
	RouteID  int64                 `json:"route_id,omitempty"`
	Currency string                `json:"currency"`
	Declared models.DeclaredTotals `json:"declared"`
	UserID   int64                 `json:"user_id"`
}

// Checkin creates a transaction in the checkin state for an existing order.
// Exactly one transaction may exist per order.
func (s *Service) Checkin(ctx context.Context, input CheckinInput) (*models.Transaction, error) {
	if _, err := s.orders.FindByID(ctx, input.OrderID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "order %d not found", input.OrderID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}

	if _, err := s.transactions.FindByOrderID(ctx, input.OrderID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "a transaction already exists for order %d", input.OrderID)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing transaction")
	}

	now := requestcontext.Now(ctx)
	t, err := models.NewTransaction(input.OrderID, input.RouteID, input.Currency,
		input.Declared, input.UserID, requestcontext.ClientIP(ctx), now)
	if err != nil {
		return nil, err
	}

	if err := s.transactions.Create(ctx, t); err != nil {
		// A concurrent checkin for the same order loses here.
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "a transaction already exists for order %d", input.OrderID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create transaction")
	}

	s.syncOrderStatus(ctx, t.OrderID, lifecycle.OrderStatusCode(t.State))

	if s.metrics != nil {
		s.metrics.TransactionsCheckedIn.Inc()
	}
	s.emit(ctx, audit.Event{
		TransactionID: t.ID,
		Action:        audit.ActionCheckin,
		ActorID:       input.UserID,
		ToState:       string(t.State),
		RequestID:     requestcontext.RequestID(ctx),
	})
	s.logger.InfoContext(ctx, "transaction checked in",
		"transaction_id", t.ID, "order_id", t.OrderID, "declared_total", t.TotalDeclaredValue)

	return t, nil
}

// syncOrderStatus pushes the mapped status code to the order record.
// Best effort: a sync failure is logged and reported, never propagated.
func (s *Service) syncOrderStatus(ctx context.Context, orderID int64, statusCode int) {
	if s.orderSync == nil {
		return
	}
	if err := s.orderSync.AdvanceStatus(ctx, orderID, statusCode); err != nil {
		if s.metrics != nil {
			s.metrics.OrderSyncFailures.Inc()
		}
		s.logger.ErrorContext(ctx, "order status sync failed",
			"order_id", orderID, "status_code", statusCode, "error", err)
	}
}
