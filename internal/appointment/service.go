package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

const (
	EventAppointmentCreated      = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed    = "APPOINTMENT_CONFIRMED"
	EventAppointmentStarted      = "APPOINTMENT_STARTED"
	EventAppointmentCompleted    = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled    = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow       = "APPOINTMENT_NO_SHOW"
	EventAppointmentAdminUpdated = "APPOINTMENT_ADMIN_UPDATED"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
)

var tracer = otel.Tracer("clinic.internal.appointment")

// Directory resolves the people an appointment refers to.
type Directory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// SlotOffer reports whether a doctor's published schedule contains a slot
// starting at t on date, regardless of whether it is already booked.
type SlotOffer interface {
	OffersSlot(ctx context.Context, doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) (bool, error)
}

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	dir     Directory
	offers  SlotOffer
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger
	metrics *metrics.Booking
}

func NewService(repo Repository, locker redisclient.Locker, dir Directory, cfg config.Config, log zerolog.Logger) *Service {
	loc := cfg.ClinicLocation
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:   repo,
		locker: locker,
		dir:    dir,
		loc:    loc,
		now:    time.Now,
		log:    log.With().Str("component", "appointment").Logger(),
	}
}

// WithSlotOffer makes Create reject times the doctor's schedule does not offer.
func (s *Service) WithSlotOffer(o SlotOffer) *Service {
	s.offers = o
	return s
}

func (s *Service) WithMetrics(m *metrics.Booking) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create books a slot for a patient. A distributed lock keyed by doctor,
// date and time keeps concurrent requests for the same slot from racing;
// the live-slot unique index catches anything the lock misses.
func (s *Service) Create(ctx context.Context, who actor.Actor, req CreateRequest) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.create", trace.WithAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID.String()),
		attribute.String("clinic.appointment_date", req.Date.String()),
		attribute.String("clinic.appointment_time", req.Time.String()),
	))
	defer func() { endSpan(span, err) }()

	if !who.IsAdmin() && !who.IsPatient(req.PatientID) {
		return nil, actor.ErrForbidden
	}

	origin, err := s.validateCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.withSlotLock(ctx, slotKey(req.DoctorID, req.Date, req.Time), func(lockCtx context.Context) error {
		// Inside the critical section re-check for a live appointment on this slot
		existing, err := s.repo.FindLive(lockCtx, req.DoctorID, req.Date, req.Time)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check live appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotUnavailable
		}

		created, err := s.repo.Insert(lockCtx, Appointment{
			ID:           uuid.New(),
			PatientID:    req.PatientID,
			DoctorID:     req.DoctorID,
			SpecialtyID:  req.SpecialtyID,
			Date:         req.Date,
			Time:         req.Time,
			Status:       StatusPending,
			PatientNotes: trimmed(req.PatientNotes),
		})
		if err != nil {
			if errors.Is(err, ErrSlotUnavailable) {
				return err
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		appt = created

		s.logEvent(lockCtx, created.ID, EventAppointmentCreated, map[string]any{
			"patient_id":       req.PatientID.String(),
			"doctor_id":        req.DoctorID.String(),
			"appointment_date": req.Date.String(),
			"appointment_time": req.Time.String(),
			"origin":           origin,
			"actor":            who.String(),
		})
		return nil
	})

	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		// Another request is booking this slot right now. The caller sees
		// the same failure as a lost race and must pick again.
		s.metrics.ObserveConflict("locked")
		return nil, ErrSlotUnavailable
	case errors.Is(err, ErrSlotUnavailable):
		s.metrics.ObserveConflict("taken")
		return nil, err
	case err != nil:
		return nil, err
	}

	s.metrics.ObserveCreated(origin)
	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID.String()).
		Str("date", appt.Date.String()).
		Str("time", appt.Time.String()).
		Str("origin", origin).
		Msg("appointment created")
	return appt, nil
}

func (s *Service) validateCreate(ctx context.Context, req CreateRequest) (string, error) {
	errs := validation.Errors{}
	errs.Required("patient_id", req.PatientID == uuid.Nil)
	errs.Required("doctor_id", req.DoctorID == uuid.Nil)
	errs.Required("specialty_id", req.SpecialtyID == uuid.Nil)
	errs.Required("appointment_date", req.Date.IsZero())
	if !req.Time.Valid() {
		errs.Add("appointment_time", "is invalid")
	}

	origin := req.Origin
	switch origin {
	case "":
		origin = OriginDirect
	case OriginDirect, OriginDeferred:
	default:
		errs.Add("origin", "must be direct or deferred")
	}
	if err := errs.Err(); err != nil {
		return "", err
	}

	if s.inPast(req.Date, req.Time) {
		return "", validation.Errors{"appointment_date": "must not be in the past"}
	}

	if _, err := s.dir.GetPatient(ctx, req.PatientID); err != nil {
		return "", err
	}
	doctor, err := s.dir.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return "", err
	}
	if !doctor.Active {
		errs.Add("doctor_id", "is not accepting appointments")
	}
	if doctor.SpecialtyID != req.SpecialtyID {
		errs.Add("specialty_id", "does not match the doctor's specialty")
	}
	if err := errs.Err(); err != nil {
		return "", err
	}

	if err := s.checkOffered(ctx, req.DoctorID, req.Date, req.Time); err != nil {
		return "", err
	}
	return origin, nil
}

// checkOffered rejects a time the doctor's published schedule does not
// offer. Without a SlotOffer every time is accepted.
func (s *Service) checkOffered(ctx context.Context, doctorID uuid.UUID, d calendar.Date, t calendar.TimeOfDay) error {
	if s.offers == nil {
		return nil
	}
	ok, err := s.offers.OffersSlot(ctx, doctorID, d, t)
	if err != nil {
		return fmt.Errorf("check schedule: %w", err)
	}
	if !ok {
		return validation.Errors{"appointment_time": "is not offered by the doctor's schedule"}
	}
	return nil
}

// withSlotLock runs fn under the slot lock. When the lock backend is down
// fn runs unlocked and the live-slot unique index alone keeps the slot
// single-booked.
func (s *Service) withSlotLock(ctx context.Context, key string, fn func(context.Context) error) error {
	err := s.locker.WithLock(ctx, key, fn)
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		s.metrics.ObserveLockFallback()
		s.log.Warn().Err(err).Str("slot", key).Msg("slot lock unavailable, relying on live-slot index")
		return fn(ctx)
	}
	return err
}

type lifecycleRule struct {
	event string
	from  []Status
	to    Status
	log   string
	// allowed decides who may fire the event on a.
	allowed func(who actor.Actor, a *Appointment) bool
}

func assignedDoctor(who actor.Actor, a *Appointment) bool { return who.IsDoctor(a.DoctorID) }
func owningPatient(who actor.Actor, a *Appointment) bool  { return who.IsPatient(a.PatientID) }

var (
	ruleConfirm  = lifecycleRule{"confirm", []Status{StatusPending}, StatusConfirmed, EventAppointmentConfirmed, assignedDoctor}
	ruleStart    = lifecycleRule{"start", []Status{StatusConfirmed}, StatusInProgress, EventAppointmentStarted, assignedDoctor}
	ruleComplete = lifecycleRule{"complete", []Status{StatusConfirmed, StatusInProgress}, StatusCompleted, EventAppointmentCompleted, assignedDoctor}
	ruleNoShow   = lifecycleRule{"no_show", []Status{StatusConfirmed}, StatusNoShow, EventAppointmentNoShow, assignedDoctor}
	ruleCancel   = lifecycleRule{"cancel", []Status{StatusPending, StatusConfirmed}, StatusCancelled, EventAppointmentCancelled, owningPatient}
)

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, who actor.Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, who, id, ruleConfirm, nil)
}

// Start marks a confirmed appointment as in progress.
func (s *Service) Start(ctx context.Context, who actor.Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, who, id, ruleStart, nil)
}

func (s *Service) Complete(ctx context.Context, who actor.Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, who, id, ruleComplete, nil)
}

func (s *Service) MarkNoShow(ctx context.Context, who actor.Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, who, id, ruleNoShow, nil)
}

// Cancel frees the slot. The reason is optional and stored verbatim after
// trimming.
func (s *Service) Cancel(ctx context.Context, who actor.Actor, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, who, id, ruleCancel, trimmed(&reason))
}

func (s *Service) transition(ctx context.Context, who actor.Actor, id uuid.UUID, rule lifecycleRule, reason *string) (updated *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment."+rule.event, trace.WithAttributes(
		attribute.String("clinic.appointment_id", id.String()),
	))
	defer func() {
		s.metrics.ObserveTransition(rule.event, err)
		endSpan(span, err)
	}()

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rule.allowed(who, appt) {
		return nil, actor.ErrForbidden
	}
	if !slices.Contains(rule.from, appt.Status) {
		return nil, fmt.Errorf("%w: cannot %s a %s appointment", ErrInvalidTransition, rule.event, appt.Status)
	}

	updated, err = s.repo.Transition(ctx, id, rule.from, rule.to, reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row exists; its status moved since we read it.
			return nil, fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("%s appointment: %w", rule.event, err)
	}

	payload := map[string]any{
		"from":  string(appt.Status),
		"to":    string(updated.Status),
		"actor": who.String(),
	}
	if reason != nil {
		payload["reason"] = *reason
	}
	s.logEvent(ctx, id, rule.log, payload)

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("event", rule.event).
		Str("from", string(appt.Status)).
		Str("to", string(updated.Status)).
		Msg("appointment transitioned")
	return updated, nil
}

// AdminUpdate applies an administrative edit. Status may be forced to any
// value on a non-terminal appointment; a terminal appointment only accepts
// note edits. A changed date or time is validated like a new booking.
func (s *Service) AdminUpdate(ctx context.Context, who actor.Actor, id uuid.UUID, patch AdminPatch) (updated *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.admin_update", trace.WithAttributes(
		attribute.String("clinic.appointment_id", id.String()),
	))
	defer func() {
		s.metrics.ObserveTransition("admin_update", err)
		endSpan(span, err)
	}()

	if !who.IsAdmin() {
		return nil, actor.ErrForbidden
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *current
	changed := map[string]any{}

	if patch.Status != nil && *patch.Status != current.Status {
		if current.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s appointment cannot change status", ErrInvalidTransition, current.Status)
		}
		next.Status = *patch.Status
		stampStatus(&next, s.now())
		changed["status"] = string(next.Status)
	}

	if patch.Date != nil {
		next.Date = *patch.Date
	}
	if patch.Time != nil {
		next.Time = *patch.Time
	}
	moved := next.Date != current.Date || next.Time != current.Time
	if moved {
		if current.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s appointment cannot be rescheduled", ErrInvalidTransition, current.Status)
		}
		errs := validation.Errors{}
		errs.Required("appointment_date", next.Date.IsZero())
		if !next.Time.Valid() {
			errs.Add("appointment_time", "is invalid")
		}
		if err := errs.Err(); err != nil {
			return nil, err
		}
		if s.inPast(next.Date, next.Time) {
			return nil, validation.Errors{"appointment_date": "must not be in the past"}
		}
		if err := s.checkOffered(ctx, next.DoctorID, next.Date, next.Time); err != nil {
			return nil, err
		}
		changed["appointment_date"] = next.Date.String()
		changed["appointment_time"] = next.Time.String()
	}

	if patch.PatientNotes != nil {
		next.PatientNotes = trimmed(patch.PatientNotes)
		changed["patient_notes"] = true
	}
	if patch.DoctorNotes != nil {
		next.DoctorNotes = trimmed(patch.DoctorNotes)
		changed["doctor_notes"] = true
	}
	if patch.CancellationReason != nil {
		next.CancellationReason = trimmed(patch.CancellationReason)
		changed["cancellation_reason"] = true
	}

	save := func(ctx context.Context) error {
		if moved && next.Status != StatusCancelled {
			existing, err := s.repo.FindLive(ctx, next.DoctorID, next.Date, next.Time)
			if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("check live appointment: %w", err)
			}
			if existing != nil && existing.ID != next.ID {
				return ErrSlotUnavailable
			}
		}
		saved, err := s.repo.Update(ctx, next)
		if err != nil {
			if errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrAppointmentNotFound) {
				return err
			}
			return fmt.Errorf("update appointment: %w", err)
		}
		updated = saved
		return nil
	}

	if moved {
		err = s.withSlotLock(ctx, slotKey(next.DoctorID, next.Date, next.Time), save)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveConflict("locked")
			return nil, ErrSlotUnavailable
		}
	} else {
		err = save(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveConflict("taken")
		}
		return nil, err
	}

	changed["actor"] = who.String()
	s.logEvent(ctx, id, EventAppointmentAdminUpdated, changed)
	s.log.Info().Str("appointment_id", id.String()).Str("admin_id", who.ID.String()).Msg("appointment updated by admin")
	return updated, nil
}

// Get returns an appointment to its patient, its doctor or an admin.
func (s *Service) Get(ctx context.Context, who actor.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.IsAdmin() && !who.IsPatient(appt.PatientID) && !who.IsDoctor(appt.DoctorID) {
		return nil, actor.ErrForbidden
	}
	return appt, nil
}

// ListUpcoming returns the caller's non-terminal appointments from today on.
func (s *Service) ListUpcoming(ctx context.Context, who actor.Actor) ([]Appointment, error) {
	return s.list(ctx, who, ViewUpcoming)
}

// ListHistory returns the caller's terminal or past appointments, newest first.
func (s *Service) ListHistory(ctx context.Context, who actor.Actor) ([]Appointment, error) {
	return s.list(ctx, who, ViewHistory)
}

func (s *Service) list(ctx context.Context, who actor.Actor, view View) ([]Appointment, error) {
	filter := ListFilter{View: view, Today: calendar.Today(s.now(), s.loc)}
	switch who.Role {
	case actor.RolePatient:
		filter.PatientID = &who.ID
	case actor.RoleDoctor:
		filter.DoctorID = &who.ID
	case actor.RoleAdmin:
	default:
		return nil, actor.ErrForbidden
	}

	appts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

// ListForDoctorDate returns every appointment of a doctor on one date,
// cancelled ones included.
func (s *Service) ListForDoctorDate(ctx context.Context, who actor.Actor, doctorID uuid.UUID, date calendar.Date) ([]Appointment, error) {
	if !who.IsAdmin() && !who.IsDoctor(doctorID) {
		return nil, actor.ErrForbidden
	}
	appts, err := s.repo.List(ctx, ListFilter{DoctorID: &doctorID, Date: &date})
	if err != nil {
		return nil, err
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

// OccupiedTimes lists the times on date held by non-cancelled appointments.
func (s *Service) OccupiedTimes(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	return s.repo.OccupiedTimes(ctx, doctorID, date)
}

func (s *Service) inPast(d calendar.Date, t calendar.TimeOfDay) bool {
	return t.On(d, s.loc).Before(s.now())
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

func stampStatus(a *Appointment, now time.Time) {
	switch a.Status {
	case StatusConfirmed:
		if a.ConfirmedAt == nil {
			a.ConfirmedAt = &now
		}
	case StatusCompleted:
		if a.CompletedAt == nil {
			a.CompletedAt = &now
		}
	case StatusCancelled:
		if a.CancelledAt == nil {
			a.CancelledAt = &now
		}
	}
}

func slotKey(doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) string {
	return fmt.Sprintf("slot:%s:%s:%s", doctorID, date, t)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
