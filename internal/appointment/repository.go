package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("slot is no longer available")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Insert stores a new appointment. A live appointment already holding the
	// same doctor, date and time yields ErrSlotUnavailable.
	Insert(ctx context.Context, a Appointment) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindLive returns the non-cancelled appointment holding a slot, or
	// ErrAppointmentNotFound.
	FindLive(ctx context.Context, doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) (*Appointment, error)

	// Transition moves id to `to` only while its status is one of from. It
	// returns ErrAppointmentNotFound when no row matched.
	Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, reason *string) (*Appointment, error)

	// Update overwrites every mutable field of a.
	Update(ctx context.Context, a Appointment) (*Appointment, error)

	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
	OccupiedTimes(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
