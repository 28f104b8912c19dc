package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type Directory interface {
	ListSpecialties(ctx context.Context) ([]directory.Specialty, error)
	ListDoctors(ctx context.Context, specialtyID uuid.UUID) ([]directory.Doctor, error)
}

type Availability interface {
	ListBookableDates(ctx context.Context, doctorID uuid.UUID) ([]calendar.Date, error)
	ListBookableSlots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]schedule.TimeSlot, error)
	ListWindowSlots(ctx context.Context, windowID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error)
}

type Authoring interface {
	Publish(ctx context.Context, who actor.Actor, req schedule.RangeRequest) (*schedule.PublishResult, error)
	CreateWindow(ctx context.Context, who actor.Actor, date calendar.Date, start, end calendar.TimeOfDay, available bool) (*schedule.Window, error)
	UpdateWindow(ctx context.Context, who actor.Actor, id uuid.UUID, patch schedule.WindowPatch) (*schedule.Window, error)
	DeleteWindow(ctx context.Context, who actor.Actor, id uuid.UUID) error
	ListWindows(ctx context.Context, doctorID uuid.UUID, filter schedule.WindowFilter) ([]schedule.Window, error)
}

type Appointments interface {
	Create(ctx context.Context, who actor.Actor, req appointment.CreateRequest) (*appointment.Appointment, error)
	Get(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error)
	ListUpcoming(ctx context.Context, who actor.Actor) ([]appointment.Appointment, error)
	ListHistory(ctx context.Context, who actor.Actor) ([]appointment.Appointment, error)
	ListForDoctorDate(ctx context.Context, who actor.Actor, doctorID uuid.UUID, date calendar.Date) ([]appointment.Appointment, error)
	Confirm(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error)
	Start(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error)
	Complete(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, who actor.Actor, id uuid.UUID, reason string) (*appointment.Appointment, error)
	AdminUpdate(ctx context.Context, who actor.Actor, id uuid.UUID, patch appointment.AdminPatch) (*appointment.Appointment, error)
}

type RouterConfig struct {
	Directory      Directory
	Availability   Availability
	Authoring      Authoring
	Appointments   Appointments
	Health         *HealthHandler
	Gatherer       prometheus.Gatherer // nil disables /metrics
	JWTSecret      string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler)

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Catalog and availability reads are public so visitors can browse
	// before signing in.
	r.Get("/specialties", listSpecialtiesHandler(cfg.Directory, log))
	r.Get("/specialties/{id}/doctors", listDoctorsHandler(cfg.Directory, log))
	r.Get("/doctors/{id}/bookable-dates", bookableDatesHandler(cfg.Availability, log))
	r.Get("/doctors/{id}/slots", bookableSlotsHandler(cfg.Availability, log))
	r.Get("/doctors/{id}/schedules", doctorWindowsHandler(cfg.Authoring, log))
	r.Get("/schedules/weekdays", coveredWeekdaysHandler())
	r.Get("/schedules/{id}/available-slots", windowSlotsHandler(cfg.Availability, log))

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.JWTSecret))

		// Schedule authoring
		r.Post("/schedules", createWindowHandler(cfg.Authoring, log))
		r.Post("/schedules/batch", publishWindowsHandler(cfg.Authoring, log))
		r.Patch("/schedules/{id}", updateWindowHandler(cfg.Authoring, log))
		r.Delete("/schedules/{id}", deleteWindowHandler(cfg.Authoring, log))

		// Appointment endpoints
		svc := cfg.Appointments
		r.Post("/appointments", createAppointmentHandler(svc, log))
		r.Get("/appointments", listAppointmentsHandler(svc, log))
		r.Get("/appointments/{id}", getAppointmentHandler(svc, log))
		r.Patch("/appointments/{id}", adminUpdateHandler(svc, log))
		r.Post("/appointments/{id}/confirm", transitionHandler(svc.Confirm, log))
		r.Post("/appointments/{id}/start", transitionHandler(svc.Start, log))
		r.Post("/appointments/{id}/complete", transitionHandler(svc.Complete, log))
		r.Post("/appointments/{id}/no-show", transitionHandler(svc.MarkNoShow, log))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc, log))
	})

	return r
}
