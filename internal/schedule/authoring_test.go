package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

func newAuthoringFixture() (*Authoring, *memRepo, *fakeBookings) {
	bookings := newFakeBookings()
	repo := newMemRepo(bookings)
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	return NewAuthoring(repo, time.UTC, 90, zerolog.Nop()).WithClock(fixedClock(now)), repo, bookings
}

func TestPublishMaterializesEveryDate(t *testing.T) {
	tool, repo, _ := newAuthoringFixture()
	doctor := actor.Doctor(uuid.New())

	res, err := tool.Publish(context.Background(), doctor, RangeRequest{
		StartDate: june2,
		EndDate:   june2.AddDays(6),
		StartTime: calendar.MustTime("09:00"),
		EndTime:   calendar.MustTime("12:00"),
	})
	require.NoError(t, err)
	assert.Len(t, res.Created, 7)
	assert.Empty(t, res.Skipped)

	windows, err := repo.ListByDoctor(context.Background(), doctor.ID, WindowFilter{})
	require.NoError(t, err)
	require.Len(t, windows, 7)
	for i, w := range windows {
		assert.Equal(t, june2.AddDays(i), w.Date)
		assert.Equal(t, doctor.ID, w.DoctorID)
		assert.True(t, w.Available)
		assert.Equal(t, "09:00", w.Start.String())
		assert.Equal(t, "12:00", w.End.String())
	}
}

func TestPublishWeekdayFilterAndSkip(t *testing.T) {
	tool, repo, _ := newAuthoringFixture()
	doctor := actor.Doctor(uuid.New())
	ctx := context.Background()

	// June 9, the second Monday, already has a window.
	repo.put(Window{DoctorID: doctor.ID, Date: june2.AddDays(7), Start: calendar.MustTime("13:00"), End: calendar.MustTime("14:00"), Available: true})

	res, err := tool.Publish(ctx, doctor, RangeRequest{
		StartDate: june2,
		EndDate:   june2.AddDays(41),
		StartTime: calendar.MustTime("09:00"),
		EndTime:   calendar.MustTime("12:00"),
		Weekdays:  []time.Weekday{time.Monday},
	})
	require.NoError(t, err)
	assert.Len(t, res.Created, 5)
	assert.Equal(t, []calendar.Date{june2.AddDays(7)}, res.Skipped)
	for _, w := range res.Created {
		assert.Equal(t, time.Monday, w.Date.Weekday())
	}

	// The pre-existing window kept its own hours.
	existing, err := repo.ListByDoctor(ctx, doctor.ID, WindowFilter{Date: &res.Skipped[0]})
	require.NoError(t, err)
	require.Len(t, existing, 1)
	assert.Equal(t, "13:00", existing[0].Start.String())
}

func TestPublishValidation(t *testing.T) {
	tool, _, _ := newAuthoringFixture()
	doctor := actor.Doctor(uuid.New())
	ctx := context.Background()

	tests := []struct {
		name  string
		req   RangeRequest
		field string
	}{
		{"end before start", RangeRequest{StartDate: june2, EndDate: june2.AddDays(-1), StartTime: calendar.MustTime("09:00"), EndTime: calendar.MustTime("10:00")}, "end_date"},
		{"past start", RangeRequest{StartDate: june2.AddDays(-5), EndDate: june2, StartTime: calendar.MustTime("09:00"), EndTime: calendar.MustTime("10:00")}, "start_date"},
		{"range too long", RangeRequest{StartDate: june2, EndDate: june2.AddDays(90), StartTime: calendar.MustTime("09:00"), EndTime: calendar.MustTime("10:00")}, "end_date"},
		{"inverted times", RangeRequest{StartDate: june2, EndDate: june2, StartTime: calendar.MustTime("10:00"), EndTime: calendar.MustTime("09:00")}, "end_time"},
		{"missing dates", RangeRequest{StartTime: calendar.MustTime("09:00"), EndTime: calendar.MustTime("10:00")}, "start_date"},
		{"no matching weekday", RangeRequest{StartDate: june2, EndDate: june2.AddDays(1), StartTime: calendar.MustTime("09:00"), EndTime: calendar.MustTime("10:00"), Weekdays: []time.Weekday{time.Friday}}, "weekdays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Publish(ctx, doctor, tt.req)
			fields, ok := validation.Fields(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestPublishRequiresDoctor(t *testing.T) {
	tool, _, _ := newAuthoringFixture()

	_, err := tool.Publish(context.Background(), actor.Patient(uuid.New()), RangeRequest{
		StartDate: june2, EndDate: june2, StartTime: calendar.MustTime("09:00"), EndTime: calendar.MustTime("10:00"),
	})
	assert.ErrorIs(t, err, actor.ErrForbidden)
}

func TestCreateWindow(t *testing.T) {
	tool, _, _ := newAuthoringFixture()
	doctor := actor.Doctor(uuid.New())
	ctx := context.Background()

	w, err := tool.CreateWindow(ctx, doctor, june2, calendar.MustTime("08:00"), calendar.MustTime("09:00"), false)
	require.NoError(t, err)
	assert.False(t, w.Available)

	_, err = tool.CreateWindow(ctx, doctor, june2, calendar.MustTime("10:00"), calendar.MustTime("11:00"), true)
	assert.ErrorIs(t, err, ErrWindowExists)
}

func TestUpdateWindowOwnerOnly(t *testing.T) {
	tool, repo, _ := newAuthoringFixture()
	owner := actor.Doctor(uuid.New())
	w := repo.put(Window{DoctorID: owner.ID, Date: june2, Start: calendar.MustTime("08:00"), End: calendar.MustTime("09:00"), Available: true})
	ctx := context.Background()
	off := false

	_, err := tool.UpdateWindow(ctx, actor.Doctor(uuid.New()), w.ID, WindowPatch{Available: &off})
	assert.ErrorIs(t, err, actor.ErrForbidden)
	_, err = tool.UpdateWindow(ctx, actor.Admin(uuid.New()), w.ID, WindowPatch{Available: &off})
	assert.ErrorIs(t, err, actor.ErrForbidden)

	updated, err := tool.UpdateWindow(ctx, owner, w.ID, WindowPatch{Available: &off})
	require.NoError(t, err)
	assert.False(t, updated.Available)

	end := calendar.MustTime("07:00")
	_, err = tool.UpdateWindow(ctx, owner, w.ID, WindowPatch{End: &end})
	_, isValidation := validation.Fields(err)
	assert.True(t, isValidation)

	_, err = tool.UpdateWindow(ctx, owner, uuid.New(), WindowPatch{Available: &off})
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestDeactivatedWindowKeepsBookingsButBlocksNewSlots(t *testing.T) {
	bookings := newFakeBookings()
	repo := newMemRepo(bookings)
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	tool := NewAuthoring(repo, time.UTC, 90, zerolog.Nop()).WithClock(fixedClock(now))
	avail := NewAvailability(repo, bookings, fixedDurations(30), time.UTC).WithClock(fixedClock(now))

	owner := actor.Doctor(uuid.New())
	w := repo.put(Window{DoctorID: owner.ID, Date: june2, Start: calendar.MustTime("08:00"), End: calendar.MustTime("09:00"), Available: true})
	bookings.book(owner.ID, june2, calendar.MustTime("08:00"))
	ctx := context.Background()

	off := false
	_, err := tool.UpdateWindow(ctx, owner, w.ID, WindowPatch{Available: &off})
	require.NoError(t, err)

	slots, err := avail.ListBookableSlots(ctx, owner.ID, june2)
	require.NoError(t, err)
	assert.Empty(t, slots)

	occupied, err := bookings.OccupiedTimes(ctx, owner.ID, june2)
	require.NoError(t, err)
	assert.Equal(t, []calendar.TimeOfDay{calendar.MustTime("08:00")}, occupied)
}

func TestDeleteWindowRefusedWithLiveBooking(t *testing.T) {
	tool, repo, bookings := newAuthoringFixture()
	owner := actor.Doctor(uuid.New())
	booked := repo.put(Window{DoctorID: owner.ID, Date: june2, Start: calendar.MustTime("08:00"), End: calendar.MustTime("09:00"), Available: true})
	free := repo.put(Window{DoctorID: owner.ID, Date: june2.AddDays(1), Start: calendar.MustTime("08:00"), End: calendar.MustTime("09:00"), Available: true})
	bookings.book(owner.ID, june2, calendar.MustTime("08:00"))
	ctx := context.Background()

	err := tool.DeleteWindow(ctx, owner, booked.ID)
	assert.ErrorIs(t, err, ErrWindowHasBookings)
	still, err := repo.GetByID(ctx, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, booked, *still)

	assert.ErrorIs(t, tool.DeleteWindow(ctx, actor.Patient(uuid.New()), free.ID), actor.ErrForbidden)
	require.NoError(t, tool.DeleteWindow(ctx, owner, free.ID))
	_, err = repo.GetByID(ctx, free.ID)
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestCoveredWeekdays(t *testing.T) {
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday}, CoveredWeekdays(june2, june2.AddDays(2)))
	assert.Len(t, CoveredWeekdays(june2, june2.AddDays(30)), 7)
	assert.Empty(t, CoveredWeekdays(june2, june2.AddDays(-1)))
}

func TestListWindowsNeverNil(t *testing.T) {
	tool, _, _ := newAuthoringFixture()

	windows, err := tool.ListWindows(context.Background(), uuid.New(), WindowFilter{})
	require.NoError(t, err)
	assert.NotNil(t, windows)
}
