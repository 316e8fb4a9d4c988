package numbering

import (
	"time"

	"github.com/google/uuid"
)

// Series is a per-business-unit document numbering counter. NextNumber is
// mutated exactly once per successful allocation, inside the same transaction
// as the document it numbers.
type Series struct {
	ID             uuid.UUID `json:"id" db:"id"`
	BusinessUnitID uuid.UUID `json:"business_unit_id" db:"business_unit_id"`
	Name           string    `json:"name" db:"name"`
	Prefix         string    `json:"prefix" db:"prefix"`
	NextNumber     int64     `json:"next_number" db:"next_number"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
