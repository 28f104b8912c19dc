package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

// RangeRequest asks for one window per date from StartDate to EndDate
// inclusive. When Weekdays is non-empty only those weekdays are materialized.
type RangeRequest struct {
	StartDate calendar.Date      `json:"start_date"`
	EndDate   calendar.Date      `json:"end_date"`
	StartTime calendar.TimeOfDay `json:"start_time"`
	EndTime   calendar.TimeOfDay `json:"end_time"`
	Weekdays  []time.Weekday     `json:"weekdays,omitempty"`
}

type PublishResult struct {
	Created []Window        `json:"created"`
	Skipped []calendar.Date `json:"skipped"`
}

// Authoring lets a doctor publish and maintain their own windows.
type Authoring struct {
	repo         Repository
	loc          *time.Location
	now          func() time.Time
	maxRangeDays int
	log          zerolog.Logger
}

func NewAuthoring(repo Repository, loc *time.Location, maxRangeDays int, log zerolog.Logger) *Authoring {
	if loc == nil {
		loc = time.UTC
	}
	return &Authoring{
		repo:         repo,
		loc:          loc,
		now:          time.Now,
		maxRangeDays: maxRangeDays,
		log:          log,
	}
}

func (a *Authoring) WithClock(now func() time.Time) *Authoring {
	a.now = now
	return a
}

// Publish materializes req into individual windows owned by the calling
// doctor. Dates that already have a window are left untouched and reported
// in Skipped.
func (a *Authoring) Publish(ctx context.Context, who actor.Actor, req RangeRequest) (*PublishResult, error) {
	if who.Role != actor.RoleDoctor {
		return nil, actor.ErrForbidden
	}

	dates, err := a.expand(req)
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(dates))
	for _, d := range dates {
		windows = append(windows, Window{
			ID:        uuid.New(),
			DoctorID:  who.ID,
			Date:      d,
			Start:     req.StartTime,
			End:       req.EndTime,
			Available: true,
		})
	}

	created, skipped, err := a.repo.CreateBatch(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("create windows: %w", err)
	}

	a.log.Info().
		Str("doctor_id", who.ID.String()).
		Str("start_date", req.StartDate.String()).
		Str("end_date", req.EndDate.String()).
		Int("created", len(created)).
		Int("skipped", len(skipped)).
		Msg("availability published")

	if created == nil {
		created = []Window{}
	}
	if skipped == nil {
		skipped = []calendar.Date{}
	}
	return &PublishResult{Created: created, Skipped: skipped}, nil
}

// CreateWindow adds a single window for the calling doctor.
func (a *Authoring) CreateWindow(ctx context.Context, who actor.Actor, date calendar.Date, start, end calendar.TimeOfDay, available bool) (*Window, error) {
	if who.Role != actor.RoleDoctor {
		return nil, actor.ErrForbidden
	}

	errs := validation.Errors{}
	errs.Required("schedule_date", date.IsZero())
	if !date.IsZero() && date.Before(calendar.Today(a.now(), a.loc)) {
		errs.Add("schedule_date", "must not be in the past")
	}
	validateTimes(errs, start, end)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	created, _, err := a.repo.CreateBatch(ctx, []Window{{
		ID:        uuid.New(),
		DoctorID:  who.ID,
		Date:      date,
		Start:     start,
		End:       end,
		Available: available,
	}})
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	if len(created) == 0 {
		return nil, ErrWindowExists
	}
	return &created[0], nil
}

// UpdateWindow edits the times or the availability flag of one window.
// Appointments already booked against the window are left as they are.
func (a *Authoring) UpdateWindow(ctx context.Context, who actor.Actor, id uuid.UUID, patch WindowPatch) (*Window, error) {
	w, err := a.owned(ctx, who, id)
	if err != nil {
		return nil, err
	}

	if patch.Start != nil {
		w.Start = *patch.Start
	}
	if patch.End != nil {
		w.End = *patch.End
	}
	if patch.Available != nil {
		w.Available = *patch.Available
	}

	errs := validation.Errors{}
	validateTimes(errs, w.Start, w.End)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	updated, err := a.repo.Update(ctx, *w)
	if err != nil {
		return nil, fmt.Errorf("update window: %w", err)
	}

	a.log.Info().
		Str("window_id", id.String()).
		Str("doctor_id", who.ID.String()).
		Bool("is_available", updated.Available).
		Msg("availability window updated")
	return updated, nil
}

// DeleteWindow permanently removes a window. The store refuses when the
// window's date still carries non-cancelled appointments.
func (a *Authoring) DeleteWindow(ctx context.Context, who actor.Actor, id uuid.UUID) error {
	if _, err := a.owned(ctx, who, id); err != nil {
		return err
	}
	if err := a.repo.Delete(ctx, id); err != nil {
		return err
	}
	a.log.Info().Str("window_id", id.String()).Str("doctor_id", who.ID.String()).Msg("availability window deleted")
	return nil
}

// ListWindows returns a doctor's windows. Anyone may read them.
func (a *Authoring) ListWindows(ctx context.Context, doctorID uuid.UUID, filter WindowFilter) ([]Window, error) {
	windows, err := a.repo.ListByDoctor(ctx, doctorID, filter)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	if windows == nil {
		windows = []Window{}
	}
	return windows, nil
}

// CoveredWeekdays lists the weekdays a date range touches, in the order they
// first occur from start. It has no effect on stored data.
func CoveredWeekdays(start, end calendar.Date) []time.Weekday {
	var out []time.Weekday
	seen := make(map[time.Weekday]bool, 7)
	for d := start; !d.After(end) && len(out) < 7; d = d.AddDays(1) {
		wd := d.Weekday()
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	return out
}

func (a *Authoring) owned(ctx context.Context, who actor.Actor, id uuid.UUID) (*Window, error) {
	w, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.IsDoctor(w.DoctorID) {
		return nil, actor.ErrForbidden
	}
	return w, nil
}

func (a *Authoring) expand(req RangeRequest) ([]calendar.Date, error) {
	errs := validation.Errors{}
	errs.Required("start_date", req.StartDate.IsZero())
	errs.Required("end_date", req.EndDate.IsZero())
	validateTimes(errs, req.StartTime, req.EndTime)

	if !req.StartDate.IsZero() && !req.EndDate.IsZero() {
		today := calendar.Today(a.now(), a.loc)
		switch {
		case req.EndDate.Before(req.StartDate):
			errs.Add("end_date", "must not be before start_date")
		case req.StartDate.Before(today):
			errs.Add("start_date", "must not be in the past")
		case req.StartDate.DaysUntil(req.EndDate)+1 > a.maxRangeDays:
			errs.Add("end_date", fmt.Sprintf("range must not exceed %d days", a.maxRangeDays))
		}
	}
	for _, wd := range req.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			errs.Add("weekdays", "must be between 0 (Sunday) and 6 (Saturday)")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	all := calendar.DateRange(req.StartDate, req.EndDate)
	if len(req.Weekdays) == 0 {
		return all, nil
	}

	want := make(map[time.Weekday]bool, len(req.Weekdays))
	for _, wd := range req.Weekdays {
		want[wd] = true
	}
	dates := make([]calendar.Date, 0, len(all))
	for _, d := range all {
		if want[d.Weekday()] {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return nil, validation.Errors{"weekdays": "no date in the range falls on the selected weekdays"}
	}
	return dates, nil
}

func validateTimes(errs validation.Errors, start, end calendar.TimeOfDay) {
	if !start.Valid() {
		errs.Add("start_time", "is invalid")
	}
	if !end.Valid() {
		errs.Add("end_time", "is invalid")
	}
	if start >= end {
		errs.Add("end_time", "must be after start_time")
	}
}
