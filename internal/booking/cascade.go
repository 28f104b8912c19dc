package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

var (
	ErrFieldDisabled    = errors.New("field cannot be set until its prerequisite is chosen and loaded")
	ErrUnknownOption    = errors.New("value is not one of the loaded options")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrSuperseded       = errors.New("response superseded by a newer selection")
	ErrNoVault          = errors.New("no vault configured for anonymous bookings")
)

// Field names one control of the booking form, in funnel order.
type Field int

const (
	FieldSpecialty Field = iota
	FieldDoctor
	FieldDate
	FieldTime
	FieldSubmit
)

// Option is a selected catalog entry with its display name.
type Option struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// State is a snapshot of the form.
type State struct {
	Specialty *Option             `json:"specialty,omitempty"`
	Doctor    *Option             `json:"doctor,omitempty"`
	Date      *calendar.Date      `json:"date,omitempty"`
	Time      *calendar.TimeOfDay `json:"time,omitempty"`
	Notes     string              `json:"notes,omitempty"`
	Identity  PatientIdentity     `json:"identity"`

	Doctors []directory.Doctor  `json:"doctors"`
	Dates   []calendar.Date     `json:"dates"`
	Slots   []schedule.TimeSlot `json:"slots"`

	LoadingDoctors bool `json:"loading_doctors"`
	LoadingDates   bool `json:"loading_dates"`
	LoadingSlots   bool `json:"loading_slots"`
	Submitting     bool `json:"submitting"`
}

// SubmitResult carries either the created appointment or, for a visitor
// without an identity, the booking now held in the vault.
type SubmitResult struct {
	Appointment *appointment.Appointment
	Deferred    *DeferredBooking
}

// level tracks one fetched option list. gen increases on every change of the
// selection that feeds it; a response is applied only if gen still matches.
type level struct {
	gen     uint64
	loading bool
	err     error
}

// Cascade enforces specialty → doctor → date → time. Setting a field always
// clears everything after it before any new data is requested.
type Cascade struct {
	source Source
	booker Booker
	vault  *Vault

	mu         sync.Mutex
	specialty  *Option
	doctor     *Option
	date       *calendar.Date
	time       *calendar.TimeOfDay
	notes      string
	identity   PatientIdentity
	patientID  *uuid.UUID
	doctors    []directory.Doctor
	dates      []calendar.Date
	slots      []schedule.TimeSlot
	doctorsLvl level
	datesLvl   level
	slotsLvl   level
	submitting bool
}

func NewCascade(source Source, booker Booker, vault *Vault) *Cascade {
	return &Cascade{source: source, booker: booker, vault: vault}
}

// SetPatient records the signed-in patient, or nil for an anonymous visitor.
func (c *Cascade) SetPatient(id *uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patientID = id
}

func (c *Cascade) SetIdentity(p PatientIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = p
}

func (c *Cascade) SetNotes(notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = notes
}

// SelectSpecialty clears doctor, date and time and loads the specialty's
// doctors. A response that arrives after a newer selection is dropped.
func (c *Cascade) SelectSpecialty(ctx context.Context, specialty Option) error {
	c.mu.Lock()
	c.specialty = &specialty
	c.clearFrom(FieldDoctor)
	gen := c.begin(&c.doctorsLvl)
	c.mu.Unlock()

	doctors, err := c.source.ListDoctors(ctx, specialty.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(&c.doctorsLvl, gen, err) {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("load doctors: %w", err)
	}
	c.doctors = nonNil(doctors)
	return nil
}

// SelectDoctor clears date and time and loads the doctor's bookable dates.
func (c *Cascade) SelectDoctor(ctx context.Context, doctorID uuid.UUID) error {
	c.mu.Lock()
	if c.specialty == nil || c.doctorsLvl.loading {
		c.mu.Unlock()
		return ErrFieldDisabled
	}
	i := slices.IndexFunc(c.doctors, func(d directory.Doctor) bool { return d.ID == doctorID })
	if i < 0 {
		c.mu.Unlock()
		return ErrUnknownOption
	}
	c.doctor = &Option{ID: doctorID, Name: c.doctors[i].Name}
	c.clearFrom(FieldDate)
	gen := c.begin(&c.datesLvl)
	c.mu.Unlock()

	dates, err := c.source.ListBookableDates(ctx, doctorID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(&c.datesLvl, gen, err) {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("load dates: %w", err)
	}
	c.dates = nonNil(dates)
	return nil
}

// SelectDate clears time and loads the free slots of that date.
func (c *Cascade) SelectDate(ctx context.Context, date calendar.Date) error {
	c.mu.Lock()
	if c.doctor == nil || c.datesLvl.loading {
		c.mu.Unlock()
		return ErrFieldDisabled
	}
	if !slices.Contains(c.dates, date) {
		c.mu.Unlock()
		return ErrUnknownOption
	}
	c.date = &date
	c.clearFrom(FieldTime)
	c.mu.Unlock()

	return c.RefreshSlots(ctx)
}

// RefreshSlots reloads the slots of the selected date and drops a time that
// is no longer free. Used after a submission lost a race.
func (c *Cascade) RefreshSlots(ctx context.Context) error {
	c.mu.Lock()
	if c.doctor == nil || c.date == nil {
		c.mu.Unlock()
		return ErrFieldDisabled
	}
	doctorID, date := c.doctor.ID, *c.date
	c.slots = nil
	gen := c.begin(&c.slotsLvl)
	c.mu.Unlock()

	slots, err := c.source.ListBookableSlots(ctx, doctorID, date)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(&c.slotsLvl, gen, err) {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("load slots: %w", err)
	}
	c.slots = nonNil(slots)
	if c.time != nil && !c.offers(*c.time) {
		c.time = nil
	}
	return nil
}

func (c *Cascade) SelectTime(t calendar.TimeOfDay) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.date == nil || c.slotsLvl.loading {
		return ErrFieldDisabled
	}
	if !c.offers(t) {
		return ErrUnknownOption
	}
	c.time = &t
	return nil
}

// Enabled reports whether the control for f may be used now.
func (c *Cascade) Enabled(f Field) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch f {
	case FieldSpecialty:
		return true
	case FieldDoctor:
		return c.specialty != nil && !c.doctorsLvl.loading
	case FieldDate:
		return c.doctor != nil && !c.datesLvl.loading
	case FieldTime:
		return c.date != nil && !c.slotsLvl.loading
	case FieldSubmit:
		return !c.submitting && !c.slotsLvl.loading && c.missing().Err() == nil
	}
	return false
}

// Submit books the selection. A signed-in patient gets an appointment; a
// visitor's booking goes to the vault. An incomplete form returns the
// missing fields and changes nothing.
func (c *Cascade) Submit(ctx context.Context) (*SubmitResult, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if c.slotsLvl.loading {
		c.mu.Unlock()
		return nil, ErrFieldDisabled
	}
	if err := c.missing().Err(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	b := DeferredBooking{
		SpecialtyID:   c.specialty.ID,
		SpecialtyName: c.specialty.Name,
		DoctorID:      c.doctor.ID,
		DoctorName:    c.doctor.Name,
		Date:          *c.date,
		Time:          *c.time,
		PatientNotes:  strings.TrimSpace(c.notes),
		Patient:       c.identity,
	}
	patientID := c.patientID
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	if patientID == nil {
		if c.vault == nil {
			return nil, ErrNoVault
		}
		if err := c.vault.Save(ctx, b); err != nil {
			return nil, fmt.Errorf("save deferred booking: %w", err)
		}
		return &SubmitResult{Deferred: &b}, nil
	}

	req := b.request(*patientID)
	req.Origin = appointment.OriginDirect
	appt, err := c.booker.Create(ctx, req)
	if err != nil {
		if errors.Is(err, appointment.ErrSlotUnavailable) {
			c.mu.Lock()
			if c.time != nil && *c.time == b.Time {
				c.time = nil
			}
			c.mu.Unlock()
		}
		return nil, err
	}
	return &SubmitResult{Appointment: appt}, nil
}

// Reset clears every selection and discards all in-flight responses.
func (c *Cascade) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specialty = nil
	c.clearFrom(FieldDoctor)
	c.notes = ""
	c.identity = PatientIdentity{}
}

func (c *Cascade) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Specialty:      c.specialty,
		Doctor:         c.doctor,
		Date:           c.date,
		Time:           c.time,
		Notes:          c.notes,
		Identity:       c.identity,
		Doctors:        slices.Clone(c.doctors),
		Dates:          slices.Clone(c.dates),
		Slots:          slices.Clone(c.slots),
		LoadingDoctors: c.doctorsLvl.loading,
		LoadingDates:   c.datesLvl.loading,
		LoadingSlots:   c.slotsLvl.loading,
		Submitting:     c.submitting,
	}
}

// LastError returns the fetch error of the list feeding f, if any.
func (c *Cascade) LastError(f Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch f {
	case FieldDoctor:
		return c.doctorsLvl.err
	case FieldDate:
		return c.datesLvl.err
	case FieldTime:
		return c.slotsLvl.err
	}
	return nil
}

// clearFrom empties f and every field after it, with their option lists, and
// invalidates their in-flight fetches. Callers hold mu.
func (c *Cascade) clearFrom(f Field) {
	if f <= FieldDoctor {
		c.doctor = nil
		c.doctors = nil
		c.doctorsLvl = level{gen: c.doctorsLvl.gen + 1}
	}
	if f <= FieldDate {
		c.date = nil
		c.dates = nil
		c.datesLvl = level{gen: c.datesLvl.gen + 1}
	}
	if f <= FieldTime {
		c.time = nil
		c.slots = nil
		c.slotsLvl = level{gen: c.slotsLvl.gen + 1}
	}
}

func (c *Cascade) begin(l *level) uint64 {
	l.gen++
	l.loading = true
	l.err = nil
	return l.gen
}

func (c *Cascade) finish(l *level, gen uint64, err error) bool {
	if l.gen != gen {
		return false
	}
	l.loading = false
	l.err = err
	return true
}

func (c *Cascade) offers(t calendar.TimeOfDay) bool {
	return slices.ContainsFunc(c.slots, func(s schedule.TimeSlot) bool {
		return s.Time == t && s.Status == schedule.SlotAvailable
	})
}

func (c *Cascade) missing() validation.Errors {
	errs := validation.Errors{}
	errs.Required("specialty_id", c.specialty == nil)
	errs.Required("doctor_id", c.doctor == nil)
	errs.Required("appointment_date", c.date == nil)
	errs.Required("appointment_time", c.time == nil)
	c.identity.Validate(errs)
	return errs
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
