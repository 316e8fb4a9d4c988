package numbering

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian/internal/accounting/shared"
)

// Repository exposes series reads for configuration screens.
type Repository interface {
	Get(ctx context.Context, seriesID uuid.UUID) (Series, error)
	ListByBusinessUnit(ctx context.Context, businessUnitID uuid.UUID) ([]Series, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, seriesID uuid.UUID) (Series, error) {
	var s Series
	err := r.db.QueryRow(ctx, `SELECT id, business_unit_id, name, prefix, next_number, created_at, updated_at
FROM numbering_series WHERE id=$1`, seriesID).
		Scan(&s.ID, &s.BusinessUnitID, &s.Name, &s.Prefix, &s.NextNumber, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Series{}, shared.ErrSeriesNotFound
		}
		return Series{}, err
	}
	return s, nil
}

func (r *repository) ListByBusinessUnit(ctx context.Context, businessUnitID uuid.UUID) ([]Series, error) {
	rows, err := r.db.Query(ctx, `SELECT id, business_unit_id, name, prefix, next_number, created_at, updated_at
FROM numbering_series WHERE business_unit_id=$1 ORDER BY name ASC`, businessUnitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var series []Series
	for rows.Next() {
		var s Series
		if err := rows.Scan(&s.ID, &s.BusinessUnitID, &s.Name, &s.Prefix, &s.NextNumber, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, rows.Err()
}
