package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

func reply(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func TestReadsDecodeResponses(t *testing.T) {
	doctorID := uuid.New()
	var gotQuery string

	mux := http.NewServeMux()
	mux.HandleFunc("/doctors/"+doctorID.String()+"/bookable-dates", reply(http.StatusOK, map[string]any{
		"dates": []string{"2025-06-02", "2025-06-03"},
	}))
	mux.HandleFunc("/doctors/"+doctorID.String()+"/slots", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		reply(http.StatusOK, map[string]any{
			"slots": []map[string]string{{"time": "08:30", "status": "available"}},
		})(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)

	dates, err := c.ListBookableDates(t.Context(), doctorID)
	require.NoError(t, err)
	assert.Equal(t, []calendar.Date{{Year: 2025, Month: time.June, Day: 2}, {Year: 2025, Month: time.June, Day: 3}}, dates)

	slots, err := c.ListBookableSlots(t.Context(), doctorID, calendar.Date{Year: 2025, Month: time.June, Day: 2})
	require.NoError(t, err)
	assert.Equal(t, "date=2025-06-02", gotQuery)
	assert.Equal(t, []schedule.TimeSlot{{Time: calendar.MustTime("08:30"), Status: schedule.SlotAvailable}}, slots)
}

func TestCreateSendsBearerToken(t *testing.T) {
	patientID := uuid.New()
	var (
		gotAuth string
		gotBody appointment.CreateRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		reply(http.StatusCreated, appointment.Appointment{ID: uuid.New(), PatientID: patientID, Status: appointment.StatusPending})(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second).WithToken("tok-1")
	appt, err := c.Create(t.Context(), appointment.CreateRequest{
		PatientID: patientID,
		DoctorID:  uuid.New(),
		Date:      calendar.Date{Year: 2025, Month: time.June, Day: 2},
		Time:      calendar.MustTime("08:00"),
		Origin:    appointment.OriginDeferred,
	})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusPending, appt.Status)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "08:00", gotBody.Time.String())
	assert.Equal(t, appointment.OriginDeferred, gotBody.Origin)
}

func TestErrorRepliesMapToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   api.ErrorResponse
		want   error
	}{
		{"slot taken", http.StatusConflict, api.ErrorResponse{Error: api.CodeSlotUnavailable}, appointment.ErrSlotUnavailable},
		{"bad transition", http.StatusConflict, api.ErrorResponse{Error: api.CodeInvalidTransition}, appointment.ErrInvalidTransition},
		{"window has bookings", http.StatusConflict, api.ErrorResponse{Error: api.CodeWindowHasBookings}, schedule.ErrWindowHasBookings},
		{"forbidden", http.StatusForbidden, api.ErrorResponse{Error: api.CodeForbidden}, actor.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(reply(tt.status, tt.body))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Create(t.Context(), appointment.CreateRequest{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidationReplyKeepsFields(t *testing.T) {
	srv := httptest.NewServer(reply(http.StatusUnprocessableEntity, api.ErrorResponse{
		Error:  api.CodeValidationFailed,
		Fields: map[string]string{"appointment_time": "is in the past"},
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Create(t.Context(), appointment.CreateRequest{})
	fields, ok := validation.Fields(err)
	require.True(t, ok)
	assert.Equal(t, "is in the past", fields["appointment_time"])
}

func TestUnmappedReplyIsAPIError(t *testing.T) {
	srv := httptest.NewServer(reply(http.StatusNotFound, api.ErrorResponse{Error: api.CodeNotFound, Details: "doctor not found"}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ListDoctors(t.Context(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, api.CodeNotFound, apiErr.Code)
}

func TestTransportFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 20*time.Millisecond).Create(t.Context(), appointment.CreateRequest{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(1), calls.Load())
}
