package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

// Error codes returned in ErrorResponse.Error.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeValidationFailed  = "validation_failed"
	CodeUnauthenticated   = "unauthenticated"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeSlotUnavailable   = "slot_unavailable"
	CodeInvalidTransition = "invalid_transition"
	CodeWindowExists      = "window_exists"
	CodeWindowHasBookings = "window_has_bookings"
	CodeInternal          = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps a domain error onto a status code and error code.
// Anything unrecognised is logged and reported as a 500 without details.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	if fields, ok := validation.Fields(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   CodeValidationFailed,
			Details: "request failed validation",
			Fields:  fields,
		})
		return
	}

	switch {
	case errors.Is(err, actor.ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, schedule.ErrWindowNotFound),
		errors.Is(err, directory.ErrDoctorNotFound),
		errors.Is(err, directory.ErrPatientNotFound),
		errors.Is(err, directory.ErrSpecialtyNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, CodeSlotUnavailable, err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, schedule.ErrWindowExists):
		writeError(w, http.StatusConflict, CodeWindowExists, err.Error())
	case errors.Is(err, schedule.ErrWindowHasBookings):
		writeError(w, http.StatusConflict, CodeWindowHasBookings, err.Error())
	case errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvalidTime),
		errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
