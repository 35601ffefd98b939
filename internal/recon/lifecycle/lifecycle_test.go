package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
)

var allStates = []models.TransactionState{
	models.StateCheckin,
	models.StateEnqueuedForCounting,
	models.StateBillCounting,
	models.StateCoinCounting,
	models.StateCheckCounting,
	models.StateDocumentCounting,
	models.StatePendingReview,
	models.StateApproved,
	models.StateRejected,
	models.StateCancelled,
}

func TestValidate_DocumentedTargetsOnly(t *testing.T) {
	for _, from := range allStates {
		allowed := map[models.TransactionState]bool{}
		for _, to := range Allowed(from) {
			allowed[to] = true
		}
		for _, to := range allStates {
			err := Validate(from, to)
			if allowed[to] {
				assert.NoError(t, err, "%s -> %s should be allowed", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s should be rejected", from, to)
			if from.IsTerminal() {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeFinalState))
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
			}
		}
	}
}

func TestValidate_CancelReachableFromEveryNonTerminalState(t *testing.T) {
	for _, from := range allStates {
		if from.IsTerminal() {
			continue
		}
		assert.NoError(t, Validate(from, models.StateCancelled), "cancel from %s", from)
	}
}

func TestValidate_TerminalStatesAcceptNothing(t *testing.T) {
	for _, from := range []models.TransactionState{models.StateApproved, models.StateRejected, models.StateCancelled} {
		assert.Empty(t, Allowed(from))
		for _, to := range allStates {
			err := Validate(from, to)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeFinalState))
		}
	}
}

func TestValidate_ApprovalRequiresPendingReview(t *testing.T) {
	// Scenario: approving straight out of a counting phase must fail.
	err := Validate(models.StateBillCounting, models.StateApproved)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	assert.Contains(t, err.Error(), "pending_review")

	assert.NoError(t, Validate(models.StateBillCounting, models.StatePendingReview))
	assert.NoError(t, Validate(models.StatePendingReview, models.StateApproved))
	assert.NoError(t, Validate(models.StatePendingReview, models.StateRejected))
}

func TestValidate_CountingPhasesMoveBetweenEachOther(t *testing.T) {
	assert.NoError(t, Validate(models.StateBillCounting, models.StateCoinCounting))
	assert.NoError(t, Validate(models.StateCoinCounting, models.StateDocumentCounting))
	assert.Error(t, Validate(models.StateBillCounting, models.StateCheckin))
}

func TestOrderStatusCode_CoversEveryState(t *testing.T) {
	seen := map[int]bool{}
	for _, s := range allStates {
		code := OrderStatusCode(s)
		assert.GreaterOrEqual(t, code, OrderRequested)
		assert.LessOrEqual(t, code, OrderCancelled)
		seen[code] = true
	}
	assert.True(t, seen[OrderCancelled])
	assert.True(t, seen[OrderUnderReview])
}

func TestSyncDecision_ForwardOnlyWithTerminalOverride(t *testing.T) {
	assert.True(t, SyncDecision(OrderCheckedIn, OrderCounting))
	assert.False(t, SyncDecision(OrderCounting, OrderCheckedIn))
	assert.False(t, SyncDecision(OrderCounting, OrderCounting))

	// Terminal mappings always win, even against a more advanced status.
	assert.True(t, SyncDecision(OrderUnderReview, OrderCancelled))
	assert.True(t, SyncDecision(OrderCancelled, OrderApproved))
}
