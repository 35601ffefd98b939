// Package lifecycle encodes the transaction state graph and the mapping to
// the external order status code. It is pure: no persistence, no I/O, so the
// order-status side can fail independently without corrupting reconciliation
// state.
package lifecycle

import (
	"sort"
	"strings"

	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
)

var countingStates = []models.TransactionState{
	models.StateBillCounting,
	models.StateCoinCounting,
	models.StateCheckCounting,
	models.StateDocumentCounting,
}

// transitions is the allowed-next set per state. Cancelled is reachable from
// every non-terminal state; terminal states accept nothing.
var transitions = map[models.TransactionState][]models.TransactionState{
	models.StateCheckin: {
		models.StateEnqueuedForCounting,
		models.StateCancelled,
	},
	models.StateEnqueuedForCounting: append(append([]models.TransactionState{}, countingStates...),
		models.StateCancelled,
	),
	models.StatePendingReview: {
		models.StateApproved,
		models.StateRejected,
		models.StateCancelled,
	},
	models.StateApproved:  {},
	models.StateRejected:  {},
	models.StateCancelled: {},
}

func init() {
	// Counting phases may move between each other, submit for review, or cancel.
	for _, from := range countingStates {
		var next []models.TransactionState
		for _, to := range countingStates {
			if to != from {
				next = append(next, to)
			}
		}
		next = append(next, models.StatePendingReview, models.StateCancelled)
		transitions[from] = next
	}
}

// Allowed returns the legal target states from the given state.
func Allowed(from models.TransactionState) []models.TransactionState {
	next, ok := transitions[from]
	if !ok {
		return nil
	}
	out := make([]models.TransactionState, len(next))
	copy(out, next)
	return out
}

// Validate checks a single lifecycle move. Terminal states raise a final-state
// violation; other illegal moves raise an invalid transition naming the
// allowed set so callers can act.
func Validate(from, to models.TransactionState) error {
	if from.IsTerminal() {
		return dErrors.Newf(dErrors.CodeFinalState, "transaction is %s; no further transitions are permitted", from)
	}
	next, ok := transitions[from]
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "unknown state %q", from)
	}
	for _, allowed := range next {
		if allowed == to {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeInvalidTransition,
		"cannot move from %s to %s; allowed: %s", from, to, formatStates(next))
}

func formatStates(states []models.TransactionState) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// External order status codes tracked by the originating order record.
const (
	OrderRequested   = 0
	OrderCheckedIn   = 1
	OrderEnqueued    = 2
	OrderCounting    = 3
	OrderUnderReview = 4
	OrderApproved    = 5
	OrderRejected    = 5
	OrderCancelled   = 6
)

// OrderStatusCode maps a lifecycle state to the external order status code.
func OrderStatusCode(state models.TransactionState) int {
	switch state {
	case models.StateCheckin:
		return OrderCheckedIn
	case models.StateEnqueuedForCounting:
		return OrderEnqueued
	case models.StateBillCounting, models.StateCoinCounting,
		models.StateCheckCounting, models.StateDocumentCounting:
		return OrderCounting
	case models.StatePendingReview:
		return OrderUnderReview
	case models.StateApproved, models.StateRejected:
		return OrderApproved
	case models.StateCancelled:
		return OrderCancelled
	default:
		return OrderRequested
	}
}

// terminalOrderCodes always win regardless of the current external ordering.
func terminalOrderCode(code int) bool {
	return code == OrderApproved || code == OrderCancelled
}

// SyncDecision decides whether the external order status should move from
// current to target. The external status only advances forward, except that
// terminal mappings always win.
func SyncDecision(current, target int) bool {
	if terminalOrderCode(target) {
		return true
	}
	return target > current
}
