package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo           Repository
	defaultMinutes int
}

// NewService returns a directory that falls back to defaultMinutes for doctors
// without a consultation duration of their own.
func NewService(repo Repository, defaultMinutes int) *Service {
	return &Service{repo: repo, defaultMinutes: defaultMinutes}
}

func (s *Service) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	specialties, err := s.repo.ListSpecialties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	return specialties, nil
}

func (s *Service) GetSpecialty(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	return s.repo.GetSpecialtyByID(ctx, id)
}

// ListDoctors returns the active doctors of a specialty. An unknown specialty
// is reported as ErrSpecialtyNotFound rather than an empty list.
func (s *Service) ListDoctors(ctx context.Context, specialtyID uuid.UUID) ([]Doctor, error) {
	if _, err := s.repo.GetSpecialtyByID(ctx, specialtyID); err != nil {
		return nil, err
	}
	doctors, err := s.repo.ListDoctorsBySpecialty(ctx, specialtyID)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctorByID(ctx, id)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

// ConsultationMinutes returns the slot length for a doctor.
func (s *Service) ConsultationMinutes(ctx context.Context, doctorID uuid.UUID) (int, error) {
	d, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	if d.ConsultationMinutes != nil && *d.ConsultationMinutes > 0 {
		return *d.ConsultationMinutes, nil
	}
	return s.defaultMinutes, nil
}
