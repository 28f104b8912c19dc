package api

import (
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type CreateWindowRequest struct {
	Date      calendar.Date      `json:"schedule_date"`
	Start     calendar.TimeOfDay `json:"start_time"`
	End       calendar.TimeOfDay `json:"end_time"`
	Available *bool              `json:"is_available,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type BookableDatesResponse struct {
	Dates []calendar.Date `json:"dates"`
}

type SlotsResponse struct {
	Slots []schedule.TimeSlot `json:"slots"`
}

type AvailableSlotsResponse struct {
	AvailableSlots []calendar.TimeOfDay `json:"available_slots"`
}

type WeekdaysResponse struct {
	Weekdays []string `json:"weekdays"`
}

// ErrorResponse is the body of every non-2xx reply. Error is a stable code,
// Fields is set for validation failures.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
