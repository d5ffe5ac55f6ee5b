package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClinicMetrics exposes counters for booking, status and billing flows.
// A nil *ClinicMetrics is valid and records nothing.
type ClinicMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	bookingLatency   prometheus.Histogram
	transitionsTotal *prometheus.CounterVec
	billingTotal     *prometheus.CounterVec
	lockFallbacks    prometheus.Counter
}

func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome code",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "booking_duration_seconds",
			Help:      "Time spent validating and inserting a booking",
			Buckets:   prometheus.DefBuckets,
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "status_transitions_total",
			Help:      "Status update attempts by target status and outcome code",
		}, []string{"to", "outcome"}),
		billingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "billing",
			Name:      "events_total",
			Help:      "Bill creations and payment updates by outcome code",
		}, []string{"event", "outcome"}),
		lockFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "slot_lock_fallbacks_total",
			Help:      "Bookings that proceeded without the slot lock",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.transitionsTotal, m.billingTotal, m.lockFallbacks)
	return m
}

func (m *ClinicMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *ClinicMetrics) ObserveTransition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to, outcome).Inc()
}

func (m *ClinicMetrics) ObserveBilling(event, outcome string) {
	if m == nil {
		return
	}
	m.billingTotal.WithLabelValues(event, outcome).Inc()
}

func (m *ClinicMetrics) ObserveLockFallback() {
	if m == nil {
		return
	}
	m.lockFallbacks.Inc()
}
