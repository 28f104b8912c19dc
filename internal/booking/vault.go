package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

var (
	ErrVaultCorrupt       = errors.New("deferred booking could not be read")
	ErrCompleteInProgress = errors.New("deferred booking is already being completed")
)

// Vault holds at most one deferred booking. All access to the stored booking
// goes through it.
type Vault struct {
	mu      sync.Mutex
	storage Storage
	booker  Booker
	locker  redisclient.Locker
	lockKey string
	now     func() time.Time
	log     zerolog.Logger
	metrics *metrics.Booking
}

func NewVault(storage Storage, booker Booker, log zerolog.Logger) *Vault {
	return &Vault{
		storage: storage,
		booker:  booker,
		now:     time.Now,
		log:     log.With().Str("component", "vault").Logger(),
	}
}

// WithLocker serializes Complete across processes sharing the same storage.
func (v *Vault) WithLocker(l redisclient.Locker, key string) *Vault {
	v.locker = l
	v.lockKey = key
	return v
}

func (v *Vault) WithMetrics(m *metrics.Booking) *Vault {
	v.metrics = m
	return v
}

// Save stores b, replacing any booking already held.
func (v *Vault) Save(ctx context.Context, b DeferredBooking) (err error) {
	defer func() { v.metrics.ObserveVault("save", err) }()

	if err := b.validate(); err != nil {
		return err
	}
	b.SavedAt = v.now().UTC()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode deferred booking: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.storage.Store(ctx, data); err != nil {
		return err
	}

	v.log.Debug().Str("doctor_id", b.DoctorID.String()).Str("date", b.Date.String()).Msg("deferred booking saved")
	return nil
}

// Peek returns the held booking without removing it, or nil when empty.
func (v *Vault) Peek(ctx context.Context) (*DeferredBooking, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.load(ctx)
}

// Complete replays the held booking for patientID. It returns nil, nil when
// nothing is held. On success the vault is emptied; on any failure, including
// an ambiguous one, the booking stays so the caller can re-query and decide.
func (v *Vault) Complete(ctx context.Context, patientID uuid.UUID) (appt *appointment.Appointment, err error) {
	defer func() { v.metrics.ObserveVault("complete", err) }()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.locker == nil {
		return v.complete(ctx, patientID)
	}

	err = v.locker.WithLock(ctx, v.lockKey, func(ctx context.Context) error {
		var err error
		appt, err = v.complete(ctx, patientID)
		return err
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return nil, ErrCompleteInProgress
	}
	return appt, err
}

func (v *Vault) complete(ctx context.Context, patientID uuid.UUID) (*appointment.Appointment, error) {
	b, err := v.load(ctx)
	if err != nil || b == nil {
		return nil, err
	}

	appt, err := v.booker.Create(ctx, b.request(patientID))
	if err != nil {
		v.log.Info().Err(err).Str("patient_id", patientID.String()).Msg("deferred booking not completed, kept in vault")
		return nil, err
	}

	if err := v.storage.Clear(ctx); err != nil {
		// The appointment exists; a replay would hit the live slot and fail cleanly.
		v.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to clear vault after completion")
	}

	v.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("patient_id", patientID.String()).
		Msg("deferred booking completed")
	return appt, nil
}

// Discard empties the vault.
func (v *Vault) Discard(ctx context.Context) (err error) {
	defer func() { v.metrics.ObserveVault("discard", err) }()

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.storage.Clear(ctx)
}

// HandleLogout must be called when the identity on this device signs out so a
// deferred booking never carries over to the next person.
func (v *Vault) HandleLogout(ctx context.Context) error {
	if err := v.Discard(ctx); err != nil {
		return fmt.Errorf("discard on logout: %w", err)
	}
	return nil
}

func (v *Vault) load(ctx context.Context) (*DeferredBooking, error) {
	data, err := v.storage.Load(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var b DeferredBooking
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultCorrupt, err)
	}
	return &b, nil
}
