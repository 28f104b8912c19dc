package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

// Bookings reports the times already claimed by non-cancelled appointments.
type Bookings interface {
	OccupiedTimes(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error)
}

// Durations resolves a doctor's consultation length in minutes.
type Durations interface {
	ConsultationMinutes(ctx context.Context, doctorID uuid.UUID) (int, error)
}

// Availability answers "which dates" and "which times" for a doctor. Empty
// results are normal and never reported as errors.
type Availability struct {
	windows   Repository
	bookings  Bookings
	durations Durations
	loc       *time.Location
	now       func() time.Time
}

func NewAvailability(windows Repository, bookings Bookings, durations Durations, loc *time.Location) *Availability {
	if loc == nil {
		loc = time.UTC
	}
	return &Availability{
		windows:   windows,
		bookings:  bookings,
		durations: durations,
		loc:       loc,
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests and simulations.
func (a *Availability) WithClock(now func() time.Time) *Availability {
	a.now = now
	return a
}

// ListBookableDates returns the distinct dates from today onward on which the
// doctor has at least one switched-on window, ascending.
func (a *Availability) ListBookableDates(ctx context.Context, doctorID uuid.UUID) ([]calendar.Date, error) {
	today := calendar.Today(a.now(), a.loc)
	on := true

	windows, err := a.windows.ListByDoctor(ctx, doctorID, WindowFilter{From: &today, Available: &on})
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}

	seen := make(map[calendar.Date]struct{}, len(windows))
	dates := make([]calendar.Date, 0, len(windows))
	for _, w := range windows {
		if !w.Available || w.Date.Before(today) {
			continue
		}
		if _, ok := seen[w.Date]; ok {
			continue
		}
		seen[w.Date] = struct{}{}
		dates = append(dates, w.Date)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// ListBookableSlots returns the free, not-yet-started slots for doctor on date,
// in window order.
func (a *Availability) ListBookableSlots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]TimeSlot, error) {
	now := a.now().In(a.loc)
	if date.Before(calendar.DateOf(now)) {
		return []TimeSlot{}, nil
	}

	windows, err := a.windows.ListByDoctor(ctx, doctorID, WindowFilter{Date: &date})
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	if len(windows) == 0 {
		return []TimeSlot{}, nil
	}
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })

	return a.bookable(ctx, doctorID, date, windows, now)
}

// ListWindowSlots returns the bookable slot times of a single window. A date
// that does not match the window's own date yields nothing; a zero date means
// the window's date.
func (a *Availability) ListWindowSlots(ctx context.Context, windowID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	w, err := a.windows.GetByID(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = w.Date
	}
	if date != w.Date {
		return []calendar.TimeOfDay{}, nil
	}

	now := a.now().In(a.loc)
	if date.Before(calendar.DateOf(now)) {
		return []calendar.TimeOfDay{}, nil
	}

	slots, err := a.bookable(ctx, w.DoctorID, date, []Window{*w}, now)
	if err != nil {
		return nil, err
	}
	times := make([]calendar.TimeOfDay, 0, len(slots))
	for _, s := range slots {
		times = append(times, s.Time)
	}
	return times, nil
}

// OffersSlot reports whether one of the doctor's switched-on windows on date
// yields a slot starting at t. Existing bookings are not considered.
func (a *Availability) OffersSlot(ctx context.Context, doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) (bool, error) {
	on := true
	windows, err := a.windows.ListByDoctor(ctx, doctorID, WindowFilter{Date: &date, Available: &on})
	if err != nil {
		return false, fmt.Errorf("list windows: %w", err)
	}
	if len(windows) == 0 {
		return false, nil
	}

	minutes, err := a.durations.ConsultationMinutes(ctx, doctorID)
	if err != nil {
		return false, fmt.Errorf("consultation duration: %w", err)
	}
	for _, w := range windows {
		slots, err := DeriveSlots(w, minutes, nil)
		if err != nil {
			return false, fmt.Errorf("window %s: %w", w.ID, err)
		}
		for _, s := range slots {
			if s.Time == t {
				return true, nil
			}
		}
	}
	return false, nil
}

func (a *Availability) bookable(ctx context.Context, doctorID uuid.UUID, date calendar.Date, windows []Window, now time.Time) ([]TimeSlot, error) {
	minutes, err := a.durations.ConsultationMinutes(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("consultation duration: %w", err)
	}
	occupied, err := a.bookings.OccupiedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("occupied times: %w", err)
	}

	isToday := date == calendar.DateOf(now)
	current := calendar.ClockOf(now)

	out := []TimeSlot{}
	for _, w := range windows {
		slots, err := DeriveSlots(w, minutes, occupied)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w.ID, err)
		}
		for _, s := range slots {
			if s.Status != SlotAvailable {
				continue
			}
			if isToday && s.Time <= current {
				continue
			}
			out = append(out, s)
		}
	}
	return out, nil
}
