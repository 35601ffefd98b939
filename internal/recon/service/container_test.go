package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
)

func TestSaveContainer_RollsUpThroughAncestors(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 500_000)

	bag := env.saveBag(t, tx.ID, "BAG-1", nil)
	require.True(t, bag.CountedValue.Valid)
	assert.True(t, bag.CountedValue.Decimal.IsZero())

	env.saveEnvelope(t, tx.ID, bag.ID, "ENV-1", []LineInput{bills(300)})
	env.saveEnvelope(t, tx.ID, bag.ID, "ENV-2", []LineInput{bills(200)})

	reloaded, err := env.containers.FindByID(context.Background(), bag.ID)
	require.NoError(t, err)
	require.True(t, reloaded.CountedValue.Valid)
	assert.True(t, reloaded.CountedValue.Decimal.Equal(decimal.NewFromInt(500_000)),
		"bag counted value should be the sum of its envelopes, got %s", reloaded.CountedValue.Decimal)

	fresh, err := env.transactions.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, fresh.TotalCountedValue.Equal(decimal.NewFromInt(500_000)))
	assert.True(t, fresh.ValueDifference.IsZero())
}

func TestSaveContainer_ResaveReplacesDetailSet(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 500_000)

	bag := env.saveBag(t, tx.ID, "BAG-1", []LineInput{bills(100), bills(200)})
	require.True(t, bag.CountedValue.Decimal.Equal(decimal.NewFromInt(300_000)))
	firstIDs := make(map[int64]bool)
	for _, d := range bag.Details {
		firstIDs[d.ID] = true
	}

	resaved, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		ID:            bag.ID,
		TransactionID: tx.ID,
		Kind:          models.KindBag,
		Code:          "BAG-1",
		UserID:        7,
		Lines:         []LineInput{bills(500)},
	})
	require.NoError(t, err)

	require.Len(t, resaved.Details, 1)
	assert.False(t, firstIDs[resaved.Details[0].ID], "replaced lines must get fresh ids")
	assert.True(t, resaved.CountedValue.Decimal.Equal(decimal.NewFromInt(500_000)))

	fresh, err := env.transactions.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, fresh.TotalCountedValue.Equal(decimal.NewFromInt(500_000)),
		"totals must reflect the superseding line set only")
}

func TestSaveContainer_ReparentRecomputesOldChain(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 100_000)

	bagA := env.saveBag(t, tx.ID, "BAG-A", nil)
	bagB := env.saveBag(t, tx.ID, "BAG-B", nil)
	moved := env.saveEnvelope(t, tx.ID, bagA.ID, "ENV-1", []LineInput{bills(100)})

	_, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		ID:            moved.ID,
		TransactionID: tx.ID,
		ParentID:      bagB.ID,
		Kind:          models.KindEnvelope,
		EnvelopeKind:  models.EnvelopeCash,
		Code:          "ENV-1",
		UserID:        7,
		Lines:         []LineInput{bills(100)},
	})
	require.NoError(t, err)

	oldParent, err := env.containers.FindByID(context.Background(), bagA.ID)
	require.NoError(t, err)
	require.True(t, oldParent.CountedValue.Valid)
	assert.True(t, oldParent.CountedValue.Decimal.IsZero(),
		"the old parent must shed the moved envelope, got %s", oldParent.CountedValue.Decimal)

	newParent, err := env.containers.FindByID(context.Background(), bagB.ID)
	require.NoError(t, err)
	assert.True(t, newParent.CountedValue.Decimal.Equal(decimal.NewFromInt(100_000)))

	fresh, err := env.transactions.FindByID(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, fresh.TotalCountedValue.Equal(decimal.NewFromInt(100_000)),
		"a moved envelope must count once, got %s", fresh.TotalCountedValue)
}

func TestSaveContainer_CheckLineIsSinglePieceAtFaceValue(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 25_000)

	bag := env.saveBag(t, tx.ID, "BAG-1", nil)
	c, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx.ID,
		ParentID:      bag.ID,
		Kind:          models.KindEnvelope,
		EnvelopeKind:  models.EnvelopeCheck,
		Code:          "CHK-1",
		UserID:        7,
		Lines: []LineInput{{
			Type:             models.ValueCheck,
			Quantity:         5,
			FaceValue:        decimal.NewFromInt(25_000),
			InstrumentNumber: "CHQ-0042",
		}},
	})
	require.NoError(t, err)

	require.Len(t, c.Details, 1)
	assert.Equal(t, int64(1), c.Details[0].Quantity)
	assert.True(t, c.Details[0].Amount.Equal(decimal.NewFromInt(25_000)))
}

func TestSaveContainer_RejectedOutsideCountingStates(t *testing.T) {
	env := newTestEnv(t)
	tx := env.checkin(t, 100_000)

	_, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx.ID,
		Kind:          models.KindBag,
		Code:          "BAG-1",
		UserID:        7,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestSaveContainer_StructuralRules(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 100_000)
	bag := env.saveBag(t, tx.ID, "BAG-1", nil)

	_, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx.ID,
		ParentID:      bag.ID,
		Kind:          models.KindBag,
		Code:          "BAG-2",
		UserID:        7,
	})
	require.Error(t, err, "a bag must not have a parent")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStructuralViolation))

	_, err = env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx.ID,
		Kind:          models.KindEnvelope,
		EnvelopeKind:  models.EnvelopeCash,
		Code:          "ENV-1",
		UserID:        7,
	})
	require.Error(t, err, "an envelope requires a parent")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStructuralViolation))

	_, err = env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx.ID,
		ParentID:      bag.ID,
		Kind:          models.KindEnvelope,
		EnvelopeKind:  "parcel",
		Code:          "ENV-2",
		UserID:        7,
	})
	require.Error(t, err, "envelope sub-kind must be valid")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStructuralViolation))
}

func TestSaveContainer_ParentMustShareTransaction(t *testing.T) {
	env := newTestEnv(t)
	tx1 := env.inCounting(t, 100_000)
	tx2 := env.inCounting(t, 100_000)
	foreignBag := env.saveBag(t, tx2.ID, "BAG-X", nil)

	_, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx1.ID,
		ParentID:      foreignBag.ID,
		Kind:          models.KindEnvelope,
		EnvelopeKind:  models.EnvelopeCash,
		Code:          "ENV-1",
		UserID:        7,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStructuralViolation))
}

func TestSaveContainer_DuplicateCodeConflicts(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 100_000)
	env.saveBag(t, tx.ID, "BAG-1", nil)

	_, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx.ID,
		Kind:          models.KindBag,
		Code:          "BAG-1",
		UserID:        7,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestSaveContainer_UnknownDenomination(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 100_000)

	_, err := env.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: tx.ID,
		Kind:          models.KindBag,
		Code:          "BAG-1",
		UserID:        7,
		Lines: []LineInput{{
			Type:           models.ValueBill,
			DenominationID: 9999,
			Quantity:       10,
		}},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownReference))
}

func TestSumDetailsByType(t *testing.T) {
	env := newTestEnv(t)
	tx := env.inCounting(t, 100_000)

	bag := env.saveBag(t, tx.ID, "BAG-1", []LineInput{
		bills(50),
		{Type: models.ValueCoin, DenominationID: 10, Quantity: 40},
	})

	sums, err := env.svc.SumDetailsByType(context.Background(), bag.ID)
	require.NoError(t, err)
	assert.True(t, sums[models.ValueBill].Equal(decimal.NewFromInt(50_000)))
	assert.True(t, sums[models.ValueCoin].Equal(decimal.NewFromInt(4_000)))
}
