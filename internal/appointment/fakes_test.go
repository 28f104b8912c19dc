package appointment

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/calendar"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

type fakeRepo struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]Appointment
	events []EventLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appts: make(map[uuid.UUID]Appointment)}
}

func (f *fakeRepo) liveHolder(doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) *Appointment {
	for _, a := range f.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Time == t && a.Status != StatusCancelled {
			return &a
		}
	}
	return nil
}

func (f *fakeRepo) Insert(_ context.Context, a Appointment) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liveHolder(a.DoctorID, a.Date, a.Time) != nil {
		return nil, ErrSlotUnavailable
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.appts[a.ID] = a
	return &a, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (f *fakeRepo) FindLive(_ context.Context, doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a := f.liveHolder(doctorID, date, t); a != nil {
		return a, nil
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) Transition(_ context.Context, id uuid.UUID, from []Status, to Status, reason *string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || !slices.Contains(from, a.Status) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	stampStatus(&a, time.Now())
	if reason != nil {
		a.CancellationReason = reason
	}
	f.appts[id] = a
	return &a, nil
}

func (f *fakeRepo) Update(_ context.Context, a Appointment) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appts[a.ID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != StatusCancelled {
		if holder := f.liveHolder(a.DoctorID, a.Date, a.Time); holder != nil && holder.ID != a.ID {
			return nil, ErrSlotUnavailable
		}
	}
	f.appts[a.ID] = a
	return &a, nil
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Appointment
	for _, a := range f.appts {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.Date != nil && a.Date != *filter.Date {
			continue
		}
		upcoming := !a.Status.Terminal() && !a.Date.Before(filter.Today)
		if filter.View == ViewUpcoming && !upcoming {
			continue
		}
		if filter.View == ViewHistory && upcoming {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (f *fakeRepo) OccupiedTimes(_ context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []calendar.TimeOfDay
	for _, a := range f.appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status != StatusCancelled {
			out = append(out, a.Time)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.EventType)
	}
	return out
}

// memLocker is a non-blocking in-process lock with the same contract as the
// Redis locker.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type fakeDirectory struct {
	doctors  map[uuid.UUID]directory.Doctor
	patients map[uuid.UUID]directory.Patient
}

func (d *fakeDirectory) GetDoctor(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	doc, ok := d.doctors[id]
	if !ok {
		return nil, directory.ErrDoctorNotFound
	}
	return &doc, nil
}

func (d *fakeDirectory) GetPatient(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, ok := d.patients[id]
	if !ok {
		return nil, directory.ErrPatientNotFound
	}
	return &p, nil
}

// offerSet offers exactly the listed times on any date.
type offerSet []calendar.TimeOfDay

func (o offerSet) OffersSlot(_ context.Context, _ uuid.UUID, _ calendar.Date, t calendar.TimeOfDay) (bool, error) {
	return slices.Contains(o, t), nil
}
