package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/db"
)

// liveSlotIndex is the partial unique index over non-cancelled appointments.
const liveSlotIndex = "appointments_live_slot_key"

const appointmentColumns = `id, patient_id, doctor_id, specialty_id, appointment_date, appointment_time, status,
	patient_notes, doctor_notes, cancellation_reason, confirmed_at, completed_at, cancelled_at, created_at, updated_at`

type PgRepository struct {
	db db.DB
}

func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date pgtype.Date
	var at pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.SpecialtyID,
		&date,
		&at,
		&a.Status,
		&a.PatientNotes,
		&a.DoctorNotes,
		&a.CancellationReason,
		&a.ConfirmedAt,
		&a.CompletedAt,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = db.FromPGDate(date)
	a.Time = db.FromPGTime(at)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) Insert(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, specialty_id, appointment_date, appointment_time,
		                          status, patient_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.DoctorID, a.SpecialtyID, db.ToPGDate(a.Date), db.ToPGTime(a.Time), string(a.Status), a.PatientNotes)

	created, err := scanAppointment(row)
	if db.IsUniqueViolation(err, liveSlotIndex) {
		return nil, ErrSlotUnavailable
	}
	return created, err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindLive(ctx context.Context, doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND appointment_time = $3
		  AND status <> 'cancelled'
	`, doctorID, db.ToPGDate(date), db.ToPGTime(t))
	return scanAppointment(row)
}

func (r *PgRepository) Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, reason *string) (*Appointment, error) {
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    confirmed_at = CASE WHEN $2 = 'confirmed' THEN now() ELSE confirmed_at END,
		    completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN now() ELSE cancelled_at END,
		    cancellation_reason = COALESCE($4, cancellation_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns,
		id, string(to), allowed, reason)

	return scanAppointment(row)
}

func (r *PgRepository) Update(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2,
		    appointment_time = $3,
		    status = $4,
		    patient_notes = $5,
		    doctor_notes = $6,
		    cancellation_reason = $7,
		    confirmed_at = $8,
		    completed_at = $9,
		    cancelled_at = $10,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, db.ToPGDate(a.Date), db.ToPGTime(a.Time), string(a.Status),
		a.PatientNotes, a.DoctorNotes, a.CancellationReason,
		a.ConfirmedAt, a.CompletedAt, a.CancelledAt)

	updated, err := scanAppointment(row)
	if db.IsUniqueViolation(err, liveSlotIndex) {
		return nil, ErrSlotUnavailable
	}
	return updated, err
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	order := "appointment_date, appointment_time"
	if f.View == ViewHistory {
		order = "appointment_date DESC, appointment_time DESC"
	}

	var today pgtype.Date
	if f.View != ViewAll {
		today = db.ToPGDate(f.Today)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1::uuid IS NULL OR patient_id = $1)
		  AND ($2::uuid IS NULL OR doctor_id = $2)
		  AND ($3::date IS NULL OR appointment_date = $3)
		  AND (
		        $4::text = ''
		     OR ($4 = 'upcoming' AND status IN ('pending', 'confirmed', 'in_progress') AND appointment_date >= $5)
		     OR ($4 = 'history' AND (status IN ('completed', 'cancelled', 'no_show') OR appointment_date < $5))
		  )
		ORDER BY `+order,
		f.PatientID, f.DoctorID, db.ToPGNullableDate(f.Date), string(f.View), today)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) OccupiedTimes(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND status <> 'cancelled'
		ORDER BY appointment_time
	`, doctorID, db.ToPGDate(date))
	if err != nil {
		return nil, fmt.Errorf("occupied times: %w", err)
	}
	defer rows.Close()

	var result []calendar.TimeOfDay
	for rows.Next() {
		var t pgtype.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, db.FromPGTime(t))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
