// Package numbering allocates document numbers from per-business-unit series.
package numbering

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SeriesTx is the slice of a transaction needed to allocate a number. The
// caller's unit of work implements it, so a later failure in the same
// operation also rolls back the allocation.
type SeriesTx interface {
	// GetSeriesForUpdate loads the series under a row lock.
	GetSeriesForUpdate(ctx context.Context, seriesID uuid.UUID) (Series, error)
	// IncrementSeries advances the persisted counter by one.
	IncrementSeries(ctx context.Context, seriesID uuid.UUID) error
}

// Service issues document numbers.
type Service struct{}

// NewService builds a Service instance.
func NewService() *Service {
	return &Service{}
}

// Allocate returns the next document number for the series, zero-padded to
// six digits, and advances the counter. It must run inside the caller's
// transaction; concurrent allocations are serialized by the row lock taken in
// GetSeriesForUpdate, so duplicates cannot be issued.
func (s *Service) Allocate(ctx context.Context, tx SeriesTx, seriesID uuid.UUID) (string, error) {
	series, err := tx.GetSeriesForUpdate(ctx, seriesID)
	if err != nil {
		return "", err
	}
	if err := tx.IncrementSeries(ctx, seriesID); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%06d", series.Prefix, series.NextNumber), nil
}
