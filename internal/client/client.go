// Package client talks to the scheduling API over HTTP. It implements the
// booking cascade's Source and Booker so the cascade can run outside the
// server process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

// ErrTransport wraps failures to reach the server or read its reply. The
// client never retries; a booking may or may not have been made.
var ErrTransport = errors.New("scheduling api unreachable")

// APIError is a non-2xx reply the client could not map to a domain error.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Detail)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of c that authenticates as the bearer of token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) ListSpecialties(ctx context.Context) ([]directory.Specialty, error) {
	var out []directory.Specialty
	err := c.do(ctx, http.MethodGet, "/specialties", nil, &out)
	return out, err
}

func (c *Client) ListDoctors(ctx context.Context, specialtyID uuid.UUID) ([]directory.Doctor, error) {
	var out []directory.Doctor
	err := c.do(ctx, http.MethodGet, "/specialties/"+specialtyID.String()+"/doctors", nil, &out)
	return out, err
}

func (c *Client) ListBookableDates(ctx context.Context, doctorID uuid.UUID) ([]calendar.Date, error) {
	var out api.BookableDatesResponse
	if err := c.do(ctx, http.MethodGet, "/doctors/"+doctorID.String()+"/bookable-dates", nil, &out); err != nil {
		return nil, err
	}
	return out.Dates, nil
}

func (c *Client) ListBookableSlots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]schedule.TimeSlot, error) {
	var out api.SlotsResponse
	path := "/doctors/" + doctorID.String() + "/slots?" + url.Values{"date": {date.String()}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

func (c *Client) Publish(ctx context.Context, req schedule.RangeRequest) (*schedule.PublishResult, error) {
	var out schedule.PublishResult
	if err := c.do(ctx, http.MethodPost, "/schedules/batch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Create(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	var out appointment.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var out appointment.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments/"+id.String()+"/confirm", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error) {
	var out appointment.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments/"+id.String()+"/cancel", api.CancelRequest{Reason: reason}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

// decodeError turns an error reply back into the sentinel the server mapped
// it from, so callers can use errors.Is the same way in and out of process.
func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch body.Error {
	case api.CodeValidationFailed:
		errs := validation.Errors{}
		for f, msg := range body.Fields {
			errs.Add(f, msg)
		}
		if err := errs.Err(); err != nil {
			return err
		}
	case api.CodeSlotUnavailable:
		return appointment.ErrSlotUnavailable
	case api.CodeInvalidTransition:
		return appointment.ErrInvalidTransition
	case api.CodeWindowExists:
		return schedule.ErrWindowExists
	case api.CodeWindowHasBookings:
		return schedule.ErrWindowHasBookings
	case api.CodeForbidden:
		return actor.ErrForbidden
	}
	return &APIError{Status: resp.StatusCode, Code: body.Error, Detail: body.Details}
}
