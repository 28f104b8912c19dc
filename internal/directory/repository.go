package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSpecialtyNotFound = errors.New("specialty not found")
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrPatientNotFound   = errors.New("patient not found")
)

// Repository contains the DB reads the directory needs.
type Repository interface {
	ListSpecialties(ctx context.Context) ([]Specialty, error)
	GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error)

	// Only active doctors are listed.
	ListDoctorsBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]Doctor, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}
