// Package schedule owns doctors' availability windows: storing them,
// expanding date ranges into them, and turning them into bookable slots.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

// Window is one doctor's availability on one calendar date. Recurring
// availability is stored as one Window per concrete date.
type Window struct {
	ID        uuid.UUID          `json:"id"`
	DoctorID  uuid.UUID          `json:"doctor_id"`
	Date      calendar.Date      `json:"schedule_date"`
	Start     calendar.TimeOfDay `json:"start_time"`
	End       calendar.TimeOfDay `json:"end_time"`
	Available bool               `json:"is_available"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// WindowFilter narrows ListByDoctor. Nil fields do not filter.
type WindowFilter struct {
	Date      *calendar.Date
	From      *calendar.Date
	Available *bool
}

// WindowPatch is a partial edit of a single window.
type WindowPatch struct {
	Start     *calendar.TimeOfDay `json:"start_time,omitempty"`
	End       *calendar.TimeOfDay `json:"end_time,omitempty"`
	Available *bool               `json:"is_available,omitempty"`
}

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotOccupied  SlotStatus = "occupied"
)

// TimeSlot is derived on demand and never stored.
type TimeSlot struct {
	Time   calendar.TimeOfDay `json:"time"`
	Status SlotStatus         `json:"status"`
}
