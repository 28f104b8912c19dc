package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/db"
)

var windowColumnNames = []string{"id", "doctor_id", "schedule_date", "start_time", "end_time", "is_available", "created_at", "updated_at"}

func windowRow(rows *pgxmock.Rows, w Window) *pgxmock.Rows {
	return rows.AddRow(w.ID, w.DoctorID, db.ToPGDate(w.Date), db.ToPGTime(w.Start), db.ToPGTime(w.End), w.Available, w.CreatedAt, w.UpdatedAt)
}

func TestPgRepositoryCreateBatchSkipsExistingDates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doctor := uuid.New()
	now := time.Now()
	first := Window{ID: uuid.New(), DoctorID: doctor, Date: june2, Start: calendar.MustTime("09:00"), End: calendar.MustTime("12:00"), Available: true, CreatedAt: now, UpdatedAt: now}
	second := first
	second.ID = uuid.New()
	second.Date = june2.AddDays(1)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO availability_windows").
		WithArgs(first.ID, doctor, db.ToPGDate(first.Date), db.ToPGTime(first.Start), db.ToPGTime(first.End), true).
		WillReturnRows(windowRow(pgxmock.NewRows(windowColumnNames), first))
	mock.ExpectQuery("INSERT INTO availability_windows").
		WithArgs(second.ID, doctor, db.ToPGDate(second.Date), db.ToPGTime(second.Start), db.ToPGTime(second.End), true).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()

	created, skipped, err := NewPgRepository(mock).CreateBatch(context.Background(), []Window{first, second})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, first.ID, created[0].ID)
	assert.Equal(t, june2, created[0].Date)
	assert.Equal(t, "12:00", created[0].End.String())
	assert.Equal(t, []calendar.Date{second.Date}, skipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCreateBatchRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	w := Window{ID: uuid.New(), DoctorID: uuid.New(), Date: june2, Start: calendar.MustTime("09:00"), End: calendar.MustTime("10:00"), Available: true}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO availability_windows").
		WithArgs(w.ID, w.DoctorID, db.ToPGDate(w.Date), db.ToPGTime(w.Start), db.ToPGTime(w.End), true).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err = NewPgRepository(mock).CreateBatch(context.Background(), []Window{w})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM availability_windows").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = NewPgRepository(mock).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrWindowNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryListByDoctorPassesFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	doctor := uuid.New()
	from := june2
	on := true
	w := Window{ID: uuid.New(), DoctorID: doctor, Date: june2, Start: calendar.MustTime("08:00"), End: calendar.MustTime("09:00"), Available: true}

	mock.ExpectQuery("FROM availability_windows").
		WithArgs(doctor, db.ToPGNullableDate(nil), db.ToPGDate(from), db.ToPGNullableBool(&on)).
		WillReturnRows(windowRow(pgxmock.NewRows(windowColumnNames), w))

	windows, err := NewPgRepository(mock).ListByDoctor(context.Background(), doctor, WindowFilter{From: &from, Available: &on})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "08:00", windows[0].Start.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryDelete(t *testing.T) {
	tests := []struct {
		name    string
		found   int
		deleted int
		want    error
	}{
		{"removed", 1, 1, nil},
		{"missing", 0, 0, ErrWindowNotFound},
		{"live bookings", 1, 0, ErrWindowHasBookings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			id := uuid.New()
			mock.ExpectQuery("WITH target AS").
				WithArgs(id).
				WillReturnRows(pgxmock.NewRows([]string{"found", "deleted"}).AddRow(tt.found, tt.deleted))

			err = NewPgRepository(mock).Delete(context.Background(), id)
			if tt.want == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
