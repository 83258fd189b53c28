package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AvailabilityRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_requests_total",
			Help: "Availability computations by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	AvailabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "availability_duration_seconds",
			Help:    "Time spent computing availability",
			Buckets: []float64{.005, .01, .025, .05, .1, .2, .3, .5, 1, 2},
		},
		[]string{"mode"},
	)

	AvailabilitySlots = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "availability_slots_returned",
			Help:    "Number of slots returned per successful computation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	BookingConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Booking inserts rejected by the overlap constraint",
		},
	)

	Holds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holds_total",
			Help: "Slot hold attempts by outcome",
		},
		[]string{"outcome"},
	)

	OutboxPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Outbox events written to Kafka",
		},
	)
)

func RecordAvailability(mode, outcome string, took time.Duration, slots int) {
	AvailabilityRequests.WithLabelValues(mode, outcome).Inc()
	AvailabilityDuration.WithLabelValues(mode).Observe(took.Seconds())
	if outcome == "ok" {
		AvailabilitySlots.Observe(float64(slots))
	}
}

func RecordBookingConflict() {
	BookingConflicts.Inc()
}

func RecordHold(outcome string) {
	Holds.WithLabelValues(outcome).Inc()
}

func RecordOutboxPublished(n int) {
	OutboxPublished.Add(float64(n))
}
