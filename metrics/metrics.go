package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for slot listings and booking decisions.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	attemptsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	expiredTotal     prometheus.Counter
	listingsTotal    *prometheus.CounterVec
	availableSlots   prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking and reschedule attempts by outcome",
		}, []string{"op", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Booking status transitions by target status",
		}, []string{"status"}),
		expiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "expired_holds_total",
			Help:      "Pending holds cancelled by the expiry sweep",
		}),
		listingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "slots",
			Name:      "listings_total",
			Help:      "Slot listings served",
		}, []string{"closed"}),
		availableSlots: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "slots",
			Name:      "available_per_listing",
			Help:      "Available slots returned per listing",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.transitionsTotal, m.expiredTotal, m.listingsTotal, m.availableSlots)
	return m
}

func (m *BookingMetrics) ObserveAttempt(op, outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *BookingMetrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredTotal.Add(float64(n))
}

func (m *BookingMetrics) ObserveListing(closed bool, available int) {
	if m == nil {
		return
	}
	label := "false"
	if closed {
		label = "true"
	}
	m.listingsTotal.WithLabelValues(label).Inc()
	m.availableSlots.Observe(float64(available))
}
