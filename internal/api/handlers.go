package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

func createAppointmentHandler(svc Appointments, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := caller(w, r)
		if !ok {
			return
		}
		var req appointment.CreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
			return
		}

		appt, err := svc.Create(r.Context(), who, req)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func getAppointmentHandler(svc Appointments, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		appt, err := svc.Get(r.Context(), who, id)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

// listAppointmentsHandler serves three views: a doctor's day when doctor_id
// and date are given, otherwise the caller's upcoming or history list.
func listAppointmentsHandler(svc Appointments, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := caller(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()

		var (
			appts []appointment.Appointment
			err   error
		)
		switch {
		case q.Get("doctor_id") != "":
			doctorID, perr := uuid.Parse(q.Get("doctor_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, CodeInvalidRequest, "doctor_id must be a valid UUID")
				return
			}
			date, ok := requiredDate(w, r, "date")
			if !ok {
				return
			}
			appts, err = svc.ListForDoctorDate(r.Context(), who, doctorID, date)
		case q.Get("view") == "" || q.Get("view") == string(appointment.ViewUpcoming):
			appts, err = svc.ListUpcoming(r.Context(), who)
		case q.Get("view") == string(appointment.ViewHistory):
			appts, err = svc.ListHistory(r.Context(), who)
		default:
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "view must be upcoming or history")
			return
		}
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, appts)
	}
}

type transitionFunc func(ctx context.Context, who actor.Actor, id uuid.UUID) (*appointment.Appointment, error)

// transitionHandler serves the body-less lifecycle endpoints.
func transitionHandler(fn transitionFunc, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		appt, err := fn(r.Context(), who, id)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func cancelAppointmentHandler(svc Appointments, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		// The body is optional.
		var req CancelRequest
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
			return
		}
		appt, err := svc.Cancel(r.Context(), who, id, req.Reason)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func adminUpdateHandler(svc Appointments, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := caller(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var patch appointment.AdminPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
			return
		}
		appt, err := svc.AdminUpdate(r.Context(), who, id, patch)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}
