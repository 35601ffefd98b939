package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"countroom/internal/recon/models"
	"countroom/pkg/platform/sentinel"
)

// Postgres persists transactions in PostgreSQL. The version column backs
// optimistic concurrency: updates are conditional on the caller's version.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed transaction store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const transactionColumns = `
	id, order_id, route_id, currency,
	declared_bag_count, declared_envelope_count, declared_check_count, declared_document_count,
	declared_bill_value, declared_coin_value, declared_document_value, total_declared_value,
	total_counted_value, value_difference, state,
	registered_by, registered_at, registered_ip,
	counting_started_at, counting_ended_at,
	reviewed_by, reviewed_at, version`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.OrderID, &t.RouteID, &t.Currency,
		&t.DeclaredBagCount, &t.DeclaredEnvelopeCount, &t.DeclaredCheckCount, &t.DeclaredDocumentCount,
		&t.DeclaredBillValue, &t.DeclaredCoinValue, &t.DeclaredDocumentValue, &t.TotalDeclaredValue,
		&t.TotalCountedValue, &t.ValueDifference, &t.State,
		&t.RegisteredBy, &t.RegisteredAt, &t.RegisteredIP,
		&t.CountingStartedAt, &t.CountingEndedAt,
		&t.ReviewedBy, &t.ReviewedAt, &t.Version,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Postgres) Create(ctx context.Context, t *models.Transaction) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transactions (
			order_id, route_id, currency,
			declared_bag_count, declared_envelope_count, declared_check_count, declared_document_count,
			declared_bill_value, declared_coin_value, declared_document_value, total_declared_value,
			total_counted_value, value_difference, state,
			registered_by, registered_at, registered_ip, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id`,
		t.OrderID, t.RouteID, t.Currency,
		t.DeclaredBagCount, t.DeclaredEnvelopeCount, t.DeclaredCheckCount, t.DeclaredDocumentCount,
		t.DeclaredBillValue, t.DeclaredCoinValue, t.DeclaredDocumentValue, t.TotalDeclaredValue,
		t.TotalCountedValue, t.ValueDifference, t.State,
		t.RegisteredBy, t.RegisteredAt, t.RegisteredIP, t.Version,
	).Scan(&t.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction for order %d: %w", t.OrderID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction: %w", err)
	}
	return t, nil
}

func (s *Postgres) FindByOrderID(ctx context.Context, orderID int64) (*models.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE order_id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction for order %d: %w", orderID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction by order: %w", err)
	}
	return t, nil
}

// Update writes the row back conditional on the caller's version and bumps
// it. Zero affected rows means either a missing row or a lost race; the two
// are told apart so callers get the right error.
func (s *Postgres) Update(ctx context.Context, t *models.Transaction) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET
			total_counted_value = $2, value_difference = $3, state = $4,
			counting_started_at = $5, counting_ended_at = $6,
			reviewed_by = $7, reviewed_at = $8,
			version = version + 1
		WHERE id = $1 AND version = $9`,
		t.ID,
		t.TotalCountedValue, t.ValueDifference, t.State,
		t.CountingStartedAt, t.CountingEndedAt,
		t.ReviewedBy, t.ReviewedAt,
		t.Version,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, t.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check transaction existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("transaction %d: %w", t.ID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("transaction %d: %w", t.ID, sentinel.ErrVersionMismatch)
	}
	t.Version++
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
