package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

var (
	ErrWindowNotFound    = errors.New("availability window not found")
	ErrWindowExists      = errors.New("doctor already has a window on this date")
	ErrWindowHasBookings = errors.New("window has live appointments on its date")
)

// Repository is the availability store.
type Repository interface {
	// CreateBatch inserts windows, skipping dates where the doctor already
	// has one. It returns the rows created and the dates skipped.
	CreateBatch(ctx context.Context, windows []Window) ([]Window, []calendar.Date, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Window, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, filter WindowFilter) ([]Window, error)

	// Update persists Start, End and Available of w.
	Update(ctx context.Context, w Window) (*Window, error)

	// Delete removes the window unless a non-cancelled appointment exists for
	// the same doctor and date, in which case it returns ErrWindowHasBookings.
	Delete(ctx context.Context, id uuid.UUID) error
}
