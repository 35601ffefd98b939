package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countroom/internal/recon/lifecycle"
	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
)

func TestTransition_FullLifecycleStampsAndSyncs(t *testing.T) {
	env := newTestEnv(t)
	tx := env.checkin(t, 100_000)

	tx = env.advance(t, tx, models.StateEnqueuedForCounting, models.StateBillCounting)
	require.NotNil(t, tx.CountingStartedAt)
	startedAt := *tx.CountingStartedAt

	env.saveBag(t, tx.ID, "BAG-1", []LineInput{bills(100)})

	// Moving between counting phases must not reset the start stamp.
	tx = env.advance(t, tx, models.StateCoinCounting)
	require.NotNil(t, tx.CountingStartedAt)
	assert.Equal(t, startedAt, *tx.CountingStartedAt)

	tx = env.advance(t, tx, models.StatePendingReview)
	require.NotNil(t, tx.CountingEndedAt)

	tx = env.advance(t, tx, models.StateApproved)
	assert.Equal(t, models.StateApproved, tx.State)
	assert.Equal(t, int64(7), tx.ReviewedBy)
	require.NotNil(t, tx.ReviewedAt)
	assert.True(t, tx.TotalCountedValue.Equal(decimal.NewFromInt(100_000)))
	assert.True(t, tx.ValueDifference.IsZero())

	o, err := env.orders.FindByID(context.Background(), tx.OrderID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OrderApproved, o.Status)
}

func TestTransition_InvalidStepRejected(t *testing.T) {
	env := newTestEnv(t)
	tx := env.checkin(t, 100_000)

	_, err := env.svc.Transition(context.Background(), tx.ID, models.StateApproved, 7)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestTransition_TerminalStateIsFinal(t *testing.T) {
	env := newTestEnv(t)
	tx := env.checkin(t, 100_000)
	env.advance(t, tx, models.StateCancelled)

	_, err := env.svc.Transition(context.Background(), tx.ID, models.StateEnqueuedForCounting, 7)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeFinalState))
}

func TestTransition_CancelSyncsOrderToCancelled(t *testing.T) {
	env := newTestEnv(t)
	tx := env.checkin(t, 100_000)
	env.advance(t, tx, models.StateEnqueuedForCounting, models.StateCancelled)

	o, err := env.orders.FindByID(context.Background(), tx.OrderID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OrderCancelled, o.Status)
}

func TestTransition_UnknownTransaction(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Transition(context.Background(), 999, models.StateEnqueuedForCounting, 7)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRecalcTotals_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 500_000)
	env.saveBag(t, tx.ID, "BAG-1", []LineInput{bills(480)})

	first, err := env.svc.RecalcTotals(context.Background(), tx.ID)
	require.NoError(t, err)
	second, err := env.svc.RecalcTotals(context.Background(), tx.ID)
	require.NoError(t, err)

	assert.True(t, first.TotalCountedValue.Equal(second.TotalCountedValue))
	assert.True(t, first.ValueDifference.Equal(second.ValueDifference))
	assert.True(t, second.ValueDifference.Equal(decimal.NewFromInt(-20_000)))
}

func TestRecalcTotals_FrozenWhenTerminal(t *testing.T) {
	env := newTestEnv(t)
	tx := env.checkin(t, 100_000)
	env.advance(t, tx, models.StateCancelled)

	_, err := env.svc.RecalcTotals(context.Background(), tx.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeFinalState))
}
