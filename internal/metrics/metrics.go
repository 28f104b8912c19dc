package metrics

import "github.com/prometheus/client_golang/prometheus"

// Booking exposes counters for appointment creation, lifecycle transitions
// and deferred booking vault use. A nil *Booking is valid and records nothing.
type Booking struct {
	created     *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	vault       *prometheus.CounterVec
	unlocked    prometheus.Counter
}

func NewBooking(reg prometheus.Registerer) *Booking {
	m := &Booking{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "appointments_created_total",
			Help:      "Appointments created, by creation path",
		}, []string{"path"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "create_conflicts_total",
			Help:      "Appointment creations rejected because the slot was taken or locked",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Appointment lifecycle transitions attempted",
		}, []string{"event", "result"}),
		vault: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "vault_operations_total",
			Help:      "Deferred booking vault operations",
		}, []string{"op", "result"}),
		unlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "slot_lock_fallbacks_total",
			Help:      "Slot writes that ran without the Redis lock because it was unreachable",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.conflicts, m.transitions, m.vault, m.unlocked)
	return m
}

func (m *Booking) ObserveCreated(path string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(path).Inc()
}

func (m *Booking) ObserveConflict(reason string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(reason).Inc()
}

func (m *Booking) ObserveLockFallback() {
	if m == nil {
		return
	}
	m.unlocked.Inc()
}

func (m *Booking) ObserveTransition(event string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event, result(err)).Inc()
}

func (m *Booking) ObserveVault(op string, err error) {
	if m == nil {
		return
	}
	m.vault.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
