package schedule

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

type memRepo struct {
	mu      sync.Mutex
	windows map[uuid.UUID]Window
	// live appointment times per doctor and date, consulted by Delete.
	booked *fakeBookings
}

func newMemRepo(booked *fakeBookings) *memRepo {
	return &memRepo{windows: make(map[uuid.UUID]Window), booked: booked}
}

func (m *memRepo) put(w Window) Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	m.windows[w.ID] = w
	return w
}

func (m *memRepo) CreateBatch(_ context.Context, windows []Window) ([]Window, []calendar.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var created []Window
	var skipped []calendar.Date
	for _, w := range windows {
		exists := false
		for _, existing := range m.windows {
			if existing.DoctorID == w.DoctorID && existing.Date == w.Date {
				exists = true
				break
			}
		}
		if exists {
			skipped = append(skipped, w.Date)
			continue
		}
		m.windows[w.ID] = w
		created = append(created, w)
	}
	return created, skipped, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return &w, nil
}

func (m *memRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, f WindowFilter) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Window
	for _, w := range m.windows {
		if w.DoctorID != doctorID {
			continue
		}
		if f.Date != nil && w.Date != *f.Date {
			continue
		}
		if f.From != nil && w.Date.Before(*f.From) {
			continue
		}
		if f.Available != nil && w.Available != *f.Available {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (m *memRepo) Update(_ context.Context, w Window) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.windows[w.ID]
	if !ok {
		return nil, ErrWindowNotFound
	}
	cur.Start, cur.End, cur.Available = w.Start, w.End, w.Available
	m.windows[w.ID] = cur
	return &cur, nil
}

func (m *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return ErrWindowNotFound
	}
	if m.booked != nil {
		times, _ := m.booked.OccupiedTimes(ctx, w.DoctorID, w.Date)
		if len(times) > 0 {
			return ErrWindowHasBookings
		}
	}
	delete(m.windows, id)
	return nil
}

type bookingKey struct {
	doctor uuid.UUID
	date   calendar.Date
}

type fakeBookings struct {
	mu    sync.Mutex
	times map[bookingKey][]calendar.TimeOfDay
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{times: make(map[bookingKey][]calendar.TimeOfDay)}
}

func (f *fakeBookings) book(doctor uuid.UUID, date calendar.Date, t calendar.TimeOfDay) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := bookingKey{doctor, date}
	f.times[k] = append(f.times[k], t)
}

func (f *fakeBookings) OccupiedTimes(_ context.Context, doctor uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]calendar.TimeOfDay(nil), f.times[bookingKey{doctor, date}]...), nil
}

type fixedDurations int

func (d fixedDurations) ConsultationMinutes(context.Context, uuid.UUID) (int, error) {
	return int(d), nil
}
