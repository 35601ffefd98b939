package incident

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"countroom/internal/recon/models"
	"countroom/pkg/platform/sentinel"
)

// Postgres persists incidents in PostgreSQL. Incidents are append-and-update
// only; there is no delete path.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed incident store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const incidentColumns = `
	id, COALESCE(transaction_id, 0), COALESCE(container_id, 0), COALESCE(value_detail_id, 0),
	type_code, type_id, category, affected_amount,
	COALESCE(denomination_id, 0), quantity, description,
	reported_by, reported_at, status, COALESCE(resolved_by, 0), resolved_at`

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var i models.Incident
	err := row.Scan(
		&i.ID, &i.TransactionID, &i.ContainerID, &i.ValueDetailID,
		&i.TypeCode, &i.TypeID, &i.Category, &i.AffectedAmount,
		&i.DenominationID, &i.Quantity, &i.Description,
		&i.ReportedBy, &i.ReportedAt, &i.Status, &i.ResolvedBy, &i.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *Postgres) Create(ctx context.Context, i *models.Incident) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO incidents (
			transaction_id, container_id, value_detail_id,
			type_code, type_id, category, affected_amount,
			denomination_id, quantity, description,
			reported_by, reported_at, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		nullID(i.TransactionID), nullID(i.ContainerID), nullID(i.ValueDetailID),
		i.TypeCode, i.TypeID, i.Category, i.AffectedAmount,
		nullID(i.DenominationID), i.Quantity, i.Description,
		i.ReportedBy, i.ReportedAt, i.Status,
	).Scan(&i.ID)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (*models.Incident, error) {
	i, err := scanIncident(s.pool.QueryRow(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("incident %d: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select incident: %w", err)
	}
	return i, nil
}

func (s *Postgres) Update(ctx context.Context, i *models.Incident) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE incidents SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1`,
		i.ID, i.Status, nullID(i.ResolvedBy), i.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("incident %d: %w", i.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) ListByTransaction(ctx context.Context, transactionID int64) ([]*models.Incident, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE transaction_id = $1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []*models.Incident
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
