package container

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countroom/internal/recon/models"
	"countroom/pkg/platform/sentinel"
)

func bag(txID int64, code string) *models.Container {
	return &models.Container{
		TransactionID: txID,
		Kind:          models.KindBag,
		Code:          code,
		Status:        models.ContainerPending,
	}
}

func billLine(quantity int64) models.ValueDetail {
	d := models.ValueDetail{
		Type:           models.ValueBill,
		DenominationID: 1,
		Quantity:       quantity,
	}
	d.ComputeAmount(decimal.NewFromInt(1000))
	return d
}

func TestInMemory_SaveWithDetailsReplacesLineSet(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	c := bag(1, "BAG-1")
	require.NoError(t, s.SaveWithDetails(ctx, c, []models.ValueDetail{billLine(10), billLine(20)}))
	require.NotZero(t, c.ID)
	require.Len(t, c.Details, 2)
	oldIDs := map[int64]bool{c.Details[0].ID: true, c.Details[1].ID: true}

	require.NoError(t, s.SaveWithDetails(ctx, c, []models.ValueDetail{billLine(5)}))

	stored, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored.Details, 1)
	assert.False(t, oldIDs[stored.Details[0].ID], "replaced lines get fresh ids")
	assert.Equal(t, c.ID, stored.Details[0].ContainerID)
}

func TestInMemory_CodeUniquePerTransaction(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveWithDetails(ctx, bag(1, "BAG-1"), nil))

	err := s.SaveWithDetails(ctx, bag(1, "BAG-1"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	// Same code in another transaction is fine.
	require.NoError(t, s.SaveWithDetails(ctx, bag(2, "BAG-1"), nil))
}

func TestInMemory_FindDetail(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	c := bag(1, "BAG-1")
	require.NoError(t, s.SaveWithDetails(ctx, c, []models.ValueDetail{billLine(10)}))

	d, err := s.FindDetail(ctx, c.Details[0].ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, d.ContainerID)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(10_000)))

	_, err = s.FindDetail(ctx, 999)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_UpdateCountedValueAndList(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	a := bag(1, "BAG-1")
	b := bag(1, "BAG-2")
	require.NoError(t, s.SaveWithDetails(ctx, a, nil))
	require.NoError(t, s.SaveWithDetails(ctx, b, nil))
	require.NoError(t, s.SaveWithDetails(ctx, bag(2, "OTHER"), nil))

	require.NoError(t, s.UpdateCountedValue(ctx, a.ID, decimal.NewFromInt(42)))

	list, err := s.ListByTransaction(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.True(t, list[0].CountedValue.Valid)
	assert.True(t, list[0].CountedValue.Decimal.Equal(decimal.NewFromInt(42)))
	assert.False(t, list[1].CountedValue.Valid)
}

func TestInMemory_SaveUnknownID(t *testing.T) {
	s := NewInMemory()

	c := bag(1, "BAG-1")
	c.ID = 77
	err := s.SaveWithDetails(context.Background(), c, nil)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
