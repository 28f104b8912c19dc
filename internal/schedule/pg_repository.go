package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/db"
)

type PgRepository struct {
	db db.DB
}

func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

const windowColumns = `id, doctor_id, schedule_date, start_time, end_time, is_available, created_at, updated_at`

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var date pgtype.Date
	var start, end pgtype.Time

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&date,
		&start,
		&end,
		&w.Available,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.Date = db.FromPGDate(date)
	w.Start = db.FromPGTime(start)
	w.End = db.FromPGTime(end)
	return &w, nil
}

func (r *PgRepository) CreateBatch(ctx context.Context, windows []Window) ([]Window, []calendar.Date, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var created []Window
	var skipped []calendar.Date

	for _, w := range windows {
		id := w.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO availability_windows (id, doctor_id, schedule_date, start_time, end_time, is_available, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (doctor_id, schedule_date) DO NOTHING
			RETURNING `+windowColumns,
			id, w.DoctorID, db.ToPGDate(w.Date), db.ToPGTime(w.Start), db.ToPGTime(w.End), w.Available)

		saved, err := scanWindow(row)
		if errors.Is(err, ErrWindowNotFound) {
			skipped = append(skipped, w.Date)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("insert window %s: %w", w.Date, err)
		}
		created = append(created, *saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return created, skipped, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Window, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE id = $1
	`, id)
	return scanWindow(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, filter WindowFilter) ([]Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1
		  AND ($2::date IS NULL OR schedule_date = $2)
		  AND ($3::date IS NULL OR schedule_date >= $3)
		  AND ($4::boolean IS NULL OR is_available = $4)
		ORDER BY schedule_date, start_time
	`, doctorID, db.ToPGNullableDate(filter.Date), db.ToPGNullableDate(filter.From), db.ToPGNullableBool(filter.Available))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Update(ctx context.Context, w Window) (*Window, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE availability_windows
		SET start_time = $2,
		    end_time = $3,
		    is_available = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+windowColumns,
		w.ID, db.ToPGTime(w.Start), db.ToPGTime(w.End), w.Available)
	return scanWindow(row)
}

// Delete checks for live appointments and removes the row in one statement,
// so a concurrent reader never sees a window deleted out from under a booking.
func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var found, deleted int
	err := r.db.QueryRow(ctx, `
		WITH target AS (
			SELECT id, doctor_id, schedule_date
			FROM availability_windows
			WHERE id = $1
		), removed AS (
			DELETE FROM availability_windows w
			USING target t
			WHERE w.id = t.id
			  AND NOT EXISTS (
				SELECT 1 FROM appointments a
				WHERE a.doctor_id = t.doctor_id
				  AND a.appointment_date = t.schedule_date
				  AND a.status <> 'cancelled'
			  )
			RETURNING w.id
		)
		SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM removed)
	`, id).Scan(&found, &deleted)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}

	switch {
	case found == 0:
		return ErrWindowNotFound
	case deleted == 0:
		return ErrWindowHasBookings
	}
	return nil
}
