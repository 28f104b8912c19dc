package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type fakeSource struct {
	mu      sync.Mutex
	doctors map[uuid.UUID][]directory.Doctor
	dates   map[uuid.UUID][]calendar.Date
	slots   map[uuid.UUID][]schedule.TimeSlot
	// gates holds ListDoctors calls for a specialty until the channel closes.
	gates   map[uuid.UUID]chan struct{}
	started chan uuid.UUID
	// slotGate holds ListBookableSlots calls until it closes.
	slotGate     chan struct{}
	slotsStarted chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		doctors: make(map[uuid.UUID][]directory.Doctor),
		dates:   make(map[uuid.UUID][]calendar.Date),
		slots:   make(map[uuid.UUID][]schedule.TimeSlot),
		gates:   make(map[uuid.UUID]chan struct{}),
		started:      make(chan uuid.UUID, 8),
		slotsStarted: make(chan struct{}, 8),
	}
}

func (s *fakeSource) gate(specialtyID uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[specialtyID] = ch
	return ch
}

func (s *fakeSource) ListDoctors(ctx context.Context, specialtyID uuid.UUID) ([]directory.Doctor, error) {
	s.mu.Lock()
	gate := s.gates[specialtyID]
	doctors := s.doctors[specialtyID]
	s.mu.Unlock()

	s.started <- specialtyID
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return doctors, nil
}

func (s *fakeSource) ListBookableDates(_ context.Context, doctorID uuid.UUID) ([]calendar.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dates[doctorID], nil
}

func (s *fakeSource) holdSlots() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotGate = make(chan struct{})
	return s.slotGate
}

func (s *fakeSource) ListBookableSlots(ctx context.Context, doctorID uuid.UUID, _ calendar.Date) ([]schedule.TimeSlot, error) {
	s.mu.Lock()
	gate := s.slotGate
	s.mu.Unlock()

	if gate != nil {
		s.slotsStarted <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[doctorID], nil
}

func (s *fakeSource) setSlots(doctorID uuid.UUID, times ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := make([]schedule.TimeSlot, 0, len(times))
	for _, t := range times {
		slots = append(slots, schedule.TimeSlot{Time: calendar.MustTime(t), Status: schedule.SlotAvailable})
	}
	s.slots[doctorID] = slots
}

type fakeBooker struct {
	mu       sync.Mutex
	requests []appointment.CreateRequest
	err      error
	delay    time.Duration
}

func (b *fakeBooker) Create(_ context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.err != nil {
		return nil, b.err
	}
	return &appointment.Appointment{
		ID:           uuid.New(),
		PatientID:    req.PatientID,
		DoctorID:     req.DoctorID,
		SpecialtyID:  req.SpecialtyID,
		Date:         req.Date,
		Time:         req.Time,
		Status:       appointment.StatusPending,
		PatientNotes: req.PatientNotes,
	}, nil
}

func (b *fakeBooker) calls() []appointment.CreateRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]appointment.CreateRequest(nil), b.requests...)
}

type memStorage struct {
	mu   sync.Mutex
	data []byte
}

func (m *memStorage) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *memStorage) Store(_ context.Context, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), b...)
	return nil
}

func (m *memStorage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
