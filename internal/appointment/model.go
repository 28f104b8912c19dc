package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// statusScheduled is accepted on input as another name for pending. It is
// never stored.
const statusScheduled = "scheduled"

// ParseStatus maps a status label to its canonical value.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	if s == statusScheduled {
		return StatusPending, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Terminal reports whether no lifecycle event may leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Appointment struct {
	ID                 uuid.UUID          `json:"id"`
	PatientID          uuid.UUID          `json:"patient_id"`
	DoctorID           uuid.UUID          `json:"doctor_id"`
	SpecialtyID        uuid.UUID          `json:"specialty_id"`
	Date               calendar.Date      `json:"appointment_date"`
	Time               calendar.TimeOfDay `json:"appointment_time"`
	Status             Status             `json:"status"`
	PatientNotes       *string            `json:"patient_notes,omitempty"`
	DoctorNotes        *string            `json:"doctor_notes,omitempty"`
	CancellationReason *string            `json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time         `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// CreateRequest is the payload of a new booking.
type CreateRequest struct {
	PatientID    uuid.UUID          `json:"patient_id"`
	DoctorID     uuid.UUID          `json:"doctor_id"`
	SpecialtyID  uuid.UUID          `json:"specialty_id"`
	Date         calendar.Date      `json:"appointment_date"`
	Time         calendar.TimeOfDay `json:"appointment_time"`
	PatientNotes *string            `json:"patient_notes,omitempty"`
	// Origin is "direct" or "deferred"; empty means direct.
	Origin string `json:"origin,omitempty"`
}

const (
	OriginDirect   = "direct"
	OriginDeferred = "deferred"
)

// AdminPatch is an administrative edit. Nil fields are left unchanged.
type AdminPatch struct {
	Date               *calendar.Date      `json:"appointment_date,omitempty"`
	Time               *calendar.TimeOfDay `json:"appointment_time,omitempty"`
	Status             *Status             `json:"status,omitempty"`
	PatientNotes       *string             `json:"patient_notes,omitempty"`
	DoctorNotes        *string             `json:"doctor_notes,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
}

type View string

const (
	ViewAll      View = ""
	ViewUpcoming View = "upcoming"
	ViewHistory  View = "history"
)

// ListFilter narrows a listing. Nil ids do not filter. Upcoming means not
// terminal and dated today or later; history is everything else.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Date      *calendar.Date
	View      View
	Today     calendar.Date
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
