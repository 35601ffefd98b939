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

func TestCheckin_CreatesTransactionAndSyncsOrder(t *testing.T) {
	env := newTestEnv(t)
	o := env.newOrder(t)

	tx, err := env.svc.Checkin(context.Background(), CheckinInput{
		OrderID:  o.ID,
		Currency: "COP",
		Declared: models.DeclaredTotals{
			BagCount:      2,
			EnvelopeCount: 3,
			BillValue:     decimal.NewFromInt(900_000),
			CoinValue:     decimal.NewFromInt(50_000),
			DocumentValue: decimal.NewFromInt(100_000),
			TotalValue:    decimal.NewFromInt(1_050_000),
		},
		UserID: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateCheckin, tx.State)
	assert.Equal(t, int64(7), tx.RegisteredBy)
	assert.True(t, tx.TotalDeclaredValue.Equal(decimal.NewFromInt(1_050_000)))
	assert.True(t, tx.ValueDifference.IsZero())

	synced, err := env.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.OrderCheckedIn, synced.Status)
}

func TestCheckin_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Checkin(context.Background(), CheckinInput{
		OrderID:  999,
		Currency: "COP",
		UserID:   7,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCheckin_SecondCheckinForOrderConflicts(t *testing.T) {
	env := newTestEnv(t)
	tx := env.checkin(t, 500_000)

	_, err := env.svc.Checkin(context.Background(), CheckinInput{
		OrderID:  tx.OrderID,
		Currency: "COP",
		Declared: models.DeclaredTotals{},
		UserID:   7,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCheckin_DeclaredTotalMustEqualComponentSum(t *testing.T) {
	env := newTestEnv(t)
	o := env.newOrder(t)

	_, err := env.svc.Checkin(context.Background(), CheckinInput{
		OrderID:  o.ID,
		Currency: "COP",
		Declared: models.DeclaredTotals{
			BillValue:  decimal.NewFromInt(900_000),
			CoinValue:  decimal.NewFromInt(50_000),
			TotalValue: decimal.NewFromInt(1_000_000),
		},
		UserID: 7,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCheckin_NegativeDeclaredValueRejected(t *testing.T) {
	env := newTestEnv(t)
	o := env.newOrder(t)

	_, err := env.svc.Checkin(context.Background(), CheckinInput{
		OrderID:  o.ID,
		Currency: "COP",
		Declared: models.DeclaredTotals{
			BillValue:  decimal.NewFromInt(-100),
			TotalValue: decimal.NewFromInt(-100),
		},
		UserID: 7,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
