package schedule

import (
	"errors"
	"fmt"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

var (
	ErrInvalidWindow   = errors.New("window start must be before its end")
	ErrInvalidDuration = errors.New("consultation duration must be positive")
)

// DeriveSlots splits w into consecutive slots of durationMinutes, starting at
// w.Start. A slot is only emitted when it ends no later than w.End. Slots
// whose start matches an entry in occupied are marked SlotOccupied. A window
// that is switched off yields no slots.
func DeriveSlots(w Window, durationMinutes int, occupied []calendar.TimeOfDay) ([]TimeSlot, error) {
	if !w.Start.Valid() || !w.End.Valid() || w.Start >= w.End {
		return nil, fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.Start, w.End)
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDuration, durationMinutes)
	}
	if !w.Available {
		return []TimeSlot{}, nil
	}

	taken := make(map[calendar.TimeOfDay]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	slots := make([]TimeSlot, 0, int(w.End-w.Start)/durationMinutes)
	for t := w.Start; t.Add(durationMinutes) <= w.End; t = t.Add(durationMinutes) {
		status := SlotAvailable
		if _, ok := taken[t]; ok {
			status = SlotOccupied
		}
		slots = append(slots, TimeSlot{Time: t, Status: status})
	}
	return slots, nil
}
