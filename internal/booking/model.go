// Package booking drives a patient through specialty, doctor, date and time
// selection and holds bookings made before sign-in until they can be replayed.
package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

// Source supplies the options of each cascade level.
type Source interface {
	ListDoctors(ctx context.Context, specialtyID uuid.UUID) ([]directory.Doctor, error)
	ListBookableDates(ctx context.Context, doctorID uuid.UUID) ([]calendar.Date, error)
	ListBookableSlots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]schedule.TimeSlot, error)
}

// Booker submits a creation request on behalf of the patient it names.
type Booker interface {
	Create(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
}

// PatientIdentity is what a visitor types about themselves. It pre-fills
// registration after a deferred booking.
type PatientIdentity struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
}

// Validate reports the missing required identity fields. Email is optional.
func (p PatientIdentity) Validate(errs validation.Errors) {
	errs.Required("name", strings.TrimSpace(p.Name) == "")
	errs.Required("national_id", strings.TrimSpace(p.NationalID) == "")
	errs.Required("phone", strings.TrimSpace(p.Phone) == "")
}

// DeferredBooking is a fully selected booking waiting for an identity.
type DeferredBooking struct {
	SpecialtyID   uuid.UUID          `json:"specialty_id"`
	SpecialtyName string             `json:"specialty_name"`
	DoctorID      uuid.UUID          `json:"doctor_id"`
	DoctorName    string             `json:"doctor_name"`
	Date          calendar.Date      `json:"appointment_date"`
	Time          calendar.TimeOfDay `json:"appointment_time"`
	PatientNotes  string             `json:"patient_notes,omitempty"`
	Patient       PatientIdentity    `json:"patient"`
	SavedAt       time.Time          `json:"saved_at"`
}

func (b DeferredBooking) validate() error {
	errs := validation.Errors{}
	errs.Required("specialty_id", b.SpecialtyID == uuid.Nil)
	errs.Required("doctor_id", b.DoctorID == uuid.Nil)
	errs.Required("appointment_date", b.Date.IsZero())
	if !b.Time.Valid() {
		errs.Add("appointment_time", "is invalid")
	}
	return errs.Err()
}

// request builds the creation request replaying b for patientID.
func (b DeferredBooking) request(patientID uuid.UUID) appointment.CreateRequest {
	req := appointment.CreateRequest{
		PatientID:   patientID,
		DoctorID:    b.DoctorID,
		SpecialtyID: b.SpecialtyID,
		Date:        b.Date,
		Time:        b.Time,
		Origin:      appointment.OriginDeferred,
	}
	if b.PatientNotes != "" {
		notes := b.PatientNotes
		req.PatientNotes = &notes
	}
	return req
}
