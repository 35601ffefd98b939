package models

import (
	"time"

	"github.com/shopspring/decimal"

	dErrors "countroom/pkg/domain-errors"
)

// TransactionState is the reconciliation lifecycle state of a shipment.
type TransactionState string

const (
	StateCheckin             TransactionState = "checkin"
	StateEnqueuedForCounting TransactionState = "enqueued_for_counting"
	StateBillCounting        TransactionState = "bill_counting"
	StateCoinCounting        TransactionState = "coin_counting"
	StateCheckCounting       TransactionState = "check_counting"
	StateDocumentCounting    TransactionState = "document_counting"
	StatePendingReview       TransactionState = "pending_review"
	StateApproved            TransactionState = "approved"
	StateRejected            TransactionState = "rejected"
	StateCancelled           TransactionState = "cancelled"
)

// IsTerminal reports whether the state permits no further transitions.
func (s TransactionState) IsTerminal() bool {
	return s == StateApproved || s == StateRejected || s == StateCancelled
}

// IsCounting reports whether the state accepts container saves.
func (s TransactionState) IsCounting() bool {
	switch s {
	case StateBillCounting, StateCoinCounting, StateCheckCounting, StateDocumentCounting:
		return true
	}
	return false
}

// Transaction is the aggregate root for one shipment submitted for counting.
//
// Invariants:
//   - TotalDeclaredValue == DeclaredBillValue + DeclaredCoinValue + DeclaredDocumentValue
//     at creation; checkin rejects anything else
//   - ValueDifference is always recomputed from container and incident state
//     once counting begins; it is never hand-set
//   - Exactly one transaction exists per originating order (one-to-one)
//   - Terminal states (approved/rejected/cancelled) freeze all financial fields
//   - Transactions are never physically deleted
//
// Version implements optimistic concurrency: every store update checks and
// bumps it, and a losing writer surfaces the conflict to the caller rather
// than silently overwriting.
type Transaction struct {
	ID       int64  `json:"id"`
	OrderID  int64  `json:"order_id"`
	RouteID  int64  `json:"route_id,omitempty"`
	Currency string `json:"currency"`

	DeclaredBagCount      int `json:"declared_bag_count"`
	DeclaredEnvelopeCount int `json:"declared_envelope_count"`
	DeclaredCheckCount    int `json:"declared_check_count"`
	DeclaredDocumentCount int `json:"declared_document_count"`

	DeclaredBillValue     decimal.Decimal `json:"declared_bill_value"`
	DeclaredCoinValue     decimal.Decimal `json:"declared_coin_value"`
	DeclaredDocumentValue decimal.Decimal `json:"declared_document_value"`
	TotalDeclaredValue    decimal.Decimal `json:"total_declared_value"`

	TotalCountedValue decimal.Decimal `json:"total_counted_value"`
	ValueDifference   decimal.Decimal `json:"value_difference"`

	State TransactionState `json:"state"`

	RegisteredBy int64     `json:"registered_by"`
	RegisteredAt time.Time `json:"registered_at"`
	RegisteredIP string    `json:"registered_ip,omitempty"`

	CountingStartedAt *time.Time `json:"counting_started_at,omitempty"`
	CountingEndedAt   *time.Time `json:"counting_ended_at,omitempty"`

	ReviewedBy int64      `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	Version int64 `json:"-"`
}

// NewTransaction validates declared totals and builds a transaction in the
// checkin state.
func NewTransaction(orderID, routeID int64, currency string, declared DeclaredTotals, userID int64, ip string, now time.Time) (*Transaction, error) {
	if orderID == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "order reference is required")
	}
	if declared.BillValue.IsNegative() || declared.CoinValue.IsNegative() || declared.DocumentValue.IsNegative() {
		return nil, dErrors.New(dErrors.CodeValidation, "declared values must not be negative")
	}
	sum := declared.BillValue.Add(declared.CoinValue).Add(declared.DocumentValue)
	if !declared.TotalValue.Equal(sum) {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"total declared value %s does not equal bill+coin+document sum %s",
			declared.TotalValue, sum)
	}
	if declared.BagCount < 0 || declared.EnvelopeCount < 0 || declared.CheckCount < 0 || declared.DocumentCount < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "declared counts must not be negative")
	}

	return &Transaction{
		OrderID:               orderID,
		RouteID:               routeID,
		Currency:              currency,
		DeclaredBagCount:      declared.BagCount,
		DeclaredEnvelopeCount: declared.EnvelopeCount,
		DeclaredCheckCount:    declared.CheckCount,
		DeclaredDocumentCount: declared.DocumentCount,
		DeclaredBillValue:     declared.BillValue,
		DeclaredCoinValue:     declared.CoinValue,
		DeclaredDocumentValue: declared.DocumentValue,
		TotalDeclaredValue:    declared.TotalValue,
		State:                 StateCheckin,
		RegisteredBy:          userID,
		RegisteredAt:          now,
		RegisteredIP:          ip,
		Version:               1,
	}, nil
}

// DeclaredTotals carries the shipper-declared counts and values for checkin.
type DeclaredTotals struct {
	BagCount      int             `json:"bag_count"`
	EnvelopeCount int             `json:"envelope_count"`
	CheckCount    int             `json:"check_count"`
	DocumentCount int             `json:"document_count"`
	BillValue     decimal.Decimal `json:"bill_value"`
	CoinValue     decimal.Decimal `json:"coin_value"`
	DocumentValue decimal.Decimal `json:"document_value"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// ApplyTotals sets the recomputed counted total and net difference.
// The difference is counted value plus approved incident effects minus the
// declared total; callers derive both inputs from container/incident state.
func (t *Transaction) ApplyTotals(counted, approvedEffect decimal.Decimal) {
	t.TotalCountedValue = counted
	t.ValueDifference = counted.Add(approvedEffect).Sub(t.TotalDeclaredValue)
}
