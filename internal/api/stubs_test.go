package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type stubDirectory struct {
	specialties []directory.Specialty
	doctors     map[uuid.UUID][]directory.Doctor
}

func (s *stubDirectory) ListSpecialties(ctx context.Context) ([]directory.Specialty, error) {
	return s.specialties, nil
}

func (s *stubDirectory) ListDoctors(ctx context.Context, specialtyID uuid.UUID) ([]directory.Doctor, error) {
	doctors, ok := s.doctors[specialtyID]
	if !ok {
		return nil, directory.ErrSpecialtyNotFound
	}
	return doctors, nil
}

type stubAvailability struct {
	dates []calendar.Date
	slots []schedule.TimeSlot
	times []calendar.TimeOfDay
	err   error
}

func (s *stubAvailability) ListBookableDates(ctx context.Context, doctorID uuid.UUID) ([]calendar.Date, error) {
	return s.dates, s.err
}

func (s *stubAvailability) ListBookableSlots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]schedule.TimeSlot, error) {
	return s.slots, s.err
}

func (s *stubAvailability) ListWindowSlots(ctx context.Context, windowID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	return s.times, s.err
}

type stubAuthoring struct {
	who       actor.Actor
	available bool
	filter    schedule.WindowFilter
	err       error
}

func (s *stubAuthoring) Publish(ctx context.Context, who actor.Actor, req schedule.RangeRequest) (*schedule.PublishResult, error) {
	s.who = who
	if s.err != nil {
		return nil, s.err
	}
	return &schedule.PublishResult{Created: []schedule.Window{}, Skipped: []calendar.Date{}}, nil
}

func (s *stubAuthoring) CreateWindow(ctx context.Context, who actor.Actor, date calendar.Date, start, end calendar.TimeOfDay, available bool) (*schedule.Window, error) {
	s.who, s.available = who, available
	if s.err != nil {
		return nil, s.err
	}
	return &schedule.Window{ID: uuid.New(), DoctorID: who.ID, Date: date, Start: start, End: end, Available: available}, nil
}

func (s *stubAuthoring) UpdateWindow(ctx context.Context, who actor.Actor, id uuid.UUID, patch schedule.WindowPatch) (*schedule.Window, error) {
	s.who = who
	return &schedule.Window{ID: id}, s.err
}

func (s *stubAuthoring) DeleteWindow(ctx context.Context, who actor.Actor, id uuid.UUID) error {
	s.who = who
	return s.err
}

func (s *stubAuthoring) ListWindows(ctx context.Context, doctorID uuid.UUID, filter schedule.WindowFilter) ([]schedule.Window, error) {
	s.filter = filter
	return []schedule.Window{}, s.err
}

// stubAppointments records the last call and returns appt or err.
type stubAppointments struct {
	who    actor.Actor
	called string
	req    appointment.CreateRequest
	reason string
	appt   *appointment.Appointment
	list   []appointment.Appointment
	err    error
}

func (s *stubAppointments) record(name string, who actor.Actor) (*appointment.Appointment, error) {
	s.called, s.who = name, who
	if s.err != nil {
		return nil, s.err
	}
	return s.appt, nil
}

func (s *stubAppointments) records(name string, who actor.Actor) ([]appointment.Appointment, error) {
	s.called, s.who = name, who
	return s.list, s.err
}

func (s *stubAppointments) Create(ctx context.Context, who actor.Actor, req appointment.CreateRequest) (*appointment.Appointment, error) {
	s.req = req
	return s.record("create", who)
}

func (s *stubAppointments) Get(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.record("get", who)
}

func (s *stubAppointments) ListUpcoming(ctx context.Context, who actor.Actor) ([]appointment.Appointment, error) {
	return s.records("upcoming", who)
}

func (s *stubAppointments) ListHistory(ctx context.Context, who actor.Actor) ([]appointment.Appointment, error) {
	return s.records("history", who)
}

func (s *stubAppointments) ListForDoctorDate(ctx context.Context, who actor.Actor, doctorID uuid.UUID, date calendar.Date) ([]appointment.Appointment, error) {
	return s.records("doctor_day", who)
}

func (s *stubAppointments) Confirm(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.record("confirm", who)
}

func (s *stubAppointments) Start(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.record("start", who)
}

func (s *stubAppointments) Complete(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.record("complete", who)
}

func (s *stubAppointments) MarkNoShow(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error) {
	return s.record("no_show", who)
}

func (s *stubAppointments) Cancel(ctx context.Context, who actor.Actor, id uuid.UUID, reason string) (*appointment.Appointment, error) {
	s.reason = reason
	return s.record("cancel", who)
}

func (s *stubAppointments) AdminUpdate(ctx context.Context, who actor.Actor, id uuid.UUID, patch appointment.AdminPatch) (*appointment.Appointment, error) {
	return s.record("admin_update", who)
}
