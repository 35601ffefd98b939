package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"countroom/internal/catalog"
	"countroom/internal/identity"
	"countroom/internal/order"
	"countroom/internal/recon/models"
	containerstore "countroom/internal/recon/store/container"
	incidentstore "countroom/internal/recon/store/incident"
	transactionstore "countroom/internal/recon/store/transaction"
)

// testEnv wires the engine over in-memory stores and the seeded catalog.
// The seeded denominations used below: id 7 = 1000, id 8 = 500, id 10 = 100.
type testEnv struct {
	svc          *Service
	transactions *transactionstore.InMemory
	containers   *containerstore.InMemory
	incidents    *incidentstore.InMemory
	orders       *order.InMemory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		transactions: transactionstore.NewInMemory(),
		containers:   containerstore.NewInMemory(),
		incidents:    incidentstore.NewInMemory(),
		orders:       order.NewInMemory(),
	}
	ident := identity.NewStatic(map[int64]string{
		7: "R. Molina",
		9: "A. Duarte",
	})
	env.svc = New(
		env.transactions, env.containers, env.incidents,
		catalog.DefaultStatic(), ident,
		env.orders, order.NewSync(env.orders),
	)
	return env
}

func (e *testEnv) newOrder(t *testing.T) *order.Order {
	t.Helper()
	o := &order.Order{ClientRef: "CL-001"}
	require.NoError(t, e.orders.Create(context.Background(), o))
	return o
}

// checkin receives a shipment declaring the given amount as bills.
func (e *testEnv) checkin(t *testing.T, declaredBills int64) *models.Transaction {
	t.Helper()
	o := e.newOrder(t)
	tx, err := e.svc.Checkin(context.Background(), CheckinInput{
		OrderID:  o.ID,
		Currency: "COP",
		Declared: models.DeclaredTotals{
			BagCount:   1,
			BillValue:  decimal.NewFromInt(declaredBills),
			TotalValue: decimal.NewFromInt(declaredBills),
		},
		UserID: 7,
	})
	require.NoError(t, err)
	return tx
}

// advance walks the transaction through the given states in order.
func (e *testEnv) advance(t *testing.T, tx *models.Transaction, states ...models.TransactionState) *models.Transaction {
	t.Helper()
	var err error
	for _, state := range states {
		tx, err = e.svc.Transition(context.Background(), tx.ID, state, 7)
		require.NoError(t, err, "transition to %s", state)
	}
	return tx
}

// inCounting returns a fresh transaction sitting in bill_counting.
func (e *testEnv) inCounting(t *testing.T, declaredBills int64) *models.Transaction {
	t.Helper()
	tx := e.checkin(t, declaredBills)
	return e.advance(t, tx, models.StateEnqueuedForCounting, models.StateBillCounting)
}

func (e *testEnv) saveBag(t *testing.T, txID int64, code string, lines []LineInput) *models.Container {
	t.Helper()
	c, err := e.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: txID,
		Kind:          models.KindBag,
		Code:          code,
		UserID:        7,
		Lines:         lines,
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) saveEnvelope(t *testing.T, txID, parentID int64, code string, lines []LineInput) *models.Container {
	t.Helper()
	c, err := e.svc.SaveContainer(context.Background(), SaveContainerInput{
		TransactionID: txID,
		ParentID:      parentID,
		Kind:          models.KindEnvelope,
		EnvelopeKind:  models.EnvelopeCash,
		Code:          code,
		UserID:        7,
		Lines:         lines,
	})
	require.NoError(t, err)
	return c
}

// bills is a shorthand for a bill line of the seeded 1000-unit denomination.
func bills(quantity int64) LineInput {
	return LineInput{Type: models.ValueBill, DenominationID: 7, Quantity: quantity}
}
