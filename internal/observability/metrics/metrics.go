package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking lifecycle.
type BookingMetrics struct {
	transitionsTotal   *prometheus.CounterVec
	slotConflictsTotal prometheus.Counter
	sideEffectFailures *prometheus.CounterVec
	operationLatency   *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "bookings",
			Name:      "transitions_total",
			Help:      "Total lifecycle operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		slotConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "bookings",
			Name:      "slot_conflicts_total",
			Help:      "Total create/reschedule attempts rejected for an occupied slot",
		}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "physio",
			Subsystem: "bookings",
			Name:      "side_effect_failures_total",
			Help:      "Total swallowed notification/email side-effect failures",
		}, []string{"kind"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "physio",
			Subsystem: "bookings",
			Name:      "operation_latency_seconds",
			Help:      "Latency of booking lifecycle operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.slotConflictsTotal, m.sideEffectFailures, m.operationLatency)
	return m
}

func (m *BookingMetrics) ObserveTransition(operation, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveSideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(kind).Inc()
}

func (m *BookingMetrics) ObserveOperationLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}
