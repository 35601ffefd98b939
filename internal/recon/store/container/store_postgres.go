package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"countroom/internal/recon/models"
	"countroom/pkg/platform/sentinel"
)

// Postgres persists containers and their value-detail lines in PostgreSQL.
// SaveWithDetails runs in one database transaction so the upsert, the
// delete-then-reinsert of lines and the counted value land atomically.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed container store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) SaveWithDetails(ctx context.Context, c *models.Container, details []models.ValueDetail) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin container save: %w", err)
	}
	defer tx.Rollback(ctx)

	if c.ID == 0 {
		err = tx.QueryRow(ctx, `
			INSERT INTO containers (
				transaction_id, parent_id, kind, envelope_kind, code,
				declared_value, counted_value, status,
				processed_by, processed_at, client_cashier_name
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING id`,
			c.TransactionID, nullID(c.ParentID), c.Kind, nullString(string(c.EnvelopeKind)), c.Code,
			c.DeclaredValue, c.CountedValue, c.Status,
			nullID(c.ProcessedBy), c.ProcessedAt, nullString(c.ClientCashierName),
		).Scan(&c.ID)
	} else {
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, `
			UPDATE containers SET
				parent_id = $2, kind = $3, envelope_kind = $4, code = $5,
				declared_value = $6, counted_value = $7, status = $8,
				processed_by = $9, processed_at = $10, client_cashier_name = $11
			WHERE id = $1`,
			c.ID,
			nullID(c.ParentID), c.Kind, nullString(string(c.EnvelopeKind)), c.Code,
			c.DeclaredValue, c.CountedValue, c.Status,
			nullID(c.ProcessedBy), c.ProcessedAt, nullString(c.ClientCashierName),
		)
		if err == nil && tag.RowsAffected() == 0 {
			return fmt.Errorf("container %d: %w", c.ID, sentinel.ErrNotFound)
		}
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("container code %q in transaction %d: %w", c.Code, c.TransactionID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("upsert container: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM value_details WHERE container_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete prior value details: %w", err)
	}

	for i := range details {
		d := &details[i]
		d.ContainerID = c.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO value_details (
				container_id, value_type, denomination_id, quantity,
				bundle_count, loose_count, unit_value, amount,
				high_denomination, quality_id, bank_entity_id,
				account_number, instrument_number
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING id`,
			d.ContainerID, d.Type, nullID(d.DenominationID), d.Quantity,
			d.BundleCount, d.LooseCount, d.UnitValue, d.Amount,
			d.HighDenomination, nullID(d.QualityID), nullID(d.BankEntityID),
			nullString(d.AccountNumber), nullString(d.InstrumentNumber),
		).Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("insert value detail: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit container save: %w", err)
	}
	c.Details = append([]models.ValueDetail(nil), details...)
	return nil
}

func (s *Postgres) UpdateCountedValue(ctx context.Context, containerID int64, value decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE containers SET counted_value = $2 WHERE id = $1`,
		containerID, decimal.NewNullDecimal(value),
	)
	if err != nil {
		return fmt.Errorf("update counted value: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("container %d: %w", containerID, sentinel.ErrNotFound)
	}
	return nil
}

const containerColumns = `
	id, transaction_id, COALESCE(parent_id, 0), kind, COALESCE(envelope_kind, ''), code,
	declared_value, counted_value, status,
	COALESCE(processed_by, 0), processed_at, COALESCE(client_cashier_name, '')`

func scanContainer(row pgx.Row) (*models.Container, error) {
	var c models.Container
	err := row.Scan(
		&c.ID, &c.TransactionID, &c.ParentID, &c.Kind, &c.EnvelopeKind, &c.Code,
		&c.DeclaredValue, &c.CountedValue, &c.Status,
		&c.ProcessedBy, &c.ProcessedAt, &c.ClientCashierName,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (*models.Container, error) {
	c, err := scanContainer(s.pool.QueryRow(ctx,
		`SELECT `+containerColumns+` FROM containers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("container %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select container: %w", err)
	}
	details, err := s.detailsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	c.Details = details[id]
	return c, nil
}

func (s *Postgres) FindDetail(ctx context.Context, id int64) (*models.ValueDetail, error) {
	var d models.ValueDetail
	err := s.pool.QueryRow(ctx, `
		SELECT id, container_id, value_type, COALESCE(denomination_id, 0), quantity,
			bundle_count, loose_count, unit_value, amount,
			high_denomination, COALESCE(quality_id, 0), COALESCE(bank_entity_id, 0),
			COALESCE(account_number, ''), COALESCE(instrument_number, '')
		FROM value_details WHERE id = $1`, id,
	).Scan(
		&d.ID, &d.ContainerID, &d.Type, &d.DenominationID, &d.Quantity,
		&d.BundleCount, &d.LooseCount, &d.UnitValue, &d.Amount,
		&d.HighDenomination, &d.QualityID, &d.BankEntityID,
		&d.AccountNumber, &d.InstrumentNumber,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("value detail %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select value detail: %w", err)
	}
	return &d, nil
}

func (s *Postgres) ListByTransaction(ctx context.Context, transactionID int64) ([]*models.Container, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+containerColumns+` FROM containers WHERE transaction_id = $1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	defer rows.Close()

	var out []*models.Container
	var ids []int64
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan container: %w", err)
		}
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	details, err := s.detailsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range out {
		c.Details = details[c.ID]
	}
	return out, nil
}

func (s *Postgres) detailsFor(ctx context.Context, containerIDs []int64) (map[int64][]models.ValueDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, container_id, value_type, COALESCE(denomination_id, 0), quantity,
			bundle_count, loose_count, unit_value, amount,
			high_denomination, COALESCE(quality_id, 0), COALESCE(bank_entity_id, 0),
			COALESCE(account_number, ''), COALESCE(instrument_number, '')
		FROM value_details WHERE container_id = ANY($1) ORDER BY id`, containerIDs)
	if err != nil {
		return nil, fmt.Errorf("list value details: %w", err)
	}
	defer rows.Close()

	byContainer := make(map[int64][]models.ValueDetail)
	for rows.Next() {
		var d models.ValueDetail
		if err := rows.Scan(
			&d.ID, &d.ContainerID, &d.Type, &d.DenominationID, &d.Quantity,
			&d.BundleCount, &d.LooseCount, &d.UnitValue, &d.Amount,
			&d.HighDenomination, &d.QualityID, &d.BankEntityID,
			&d.AccountNumber, &d.InstrumentNumber,
		); err != nil {
			return nil, fmt.Errorf("scan value detail: %w", err)
		}
		byContainer[d.ContainerID] = append(byContainer[d.ContainerID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list value details: %w", err)
	}
	return byContainer, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
