package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

const microsPerMinute = int64(time.Minute / time.Microsecond)

func ToPGDate(d calendar.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

// ToPGNullableDate maps nil to SQL NULL.
func ToPGNullableDate(d *calendar.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return ToPGDate(*d)
}

func FromPGDate(d pgtype.Date) calendar.Date {
	if !d.Valid {
		return calendar.Date{}
	}
	return calendar.DateOf(d.Time)
}

func ToPGTime(t calendar.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}
}

func FromPGTime(t pgtype.Time) calendar.TimeOfDay {
	return calendar.TimeOfDay(t.Microseconds / microsPerMinute)
}

func ToPGNullableBool(b *bool) pgtype.Bool {
	if b == nil {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: *b, Valid: true}
}
