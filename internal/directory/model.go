// Package directory reads the clinic's specialties, doctors and patients.
// Profile management lives elsewhere; scheduling only needs lookups.
package directory

import (
	"time"

	"github.com/google/uuid"
)

type Specialty struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type Doctor struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	SpecialtyID         uuid.UUID `json:"specialty_id"`
	ConsultationMinutes *int      `json:"consultation_minutes,omitempty"`
	Active              bool      `json:"is_active"`
	CreatedAt           time.Time `json:"-"`
	UpdatedAt           time.Time `json:"-"`
}

type Patient struct {
	ID         uuid.UUID
	Name       string
	NationalID string
	Phone      string
	Email      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
