package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAvailability(t *testing.T) {
	before := testutil.ToFloat64(AvailabilityRequests.WithLabelValues("single", "ok"))
	RecordAvailability("single", "ok", 12*time.Millisecond, 16)
	assert.Equal(t, before+1, testutil.ToFloat64(AvailabilityRequests.WithLabelValues("single", "ok")))
}

func TestRecordCounters(t *testing.T) {
	conflicts := testutil.ToFloat64(BookingConflicts)
	RecordBookingConflict()
	assert.Equal(t, conflicts+1, testutil.ToFloat64(BookingConflicts))

	held := testutil.ToFloat64(Holds.WithLabelValues("created"))
	RecordHold("created")
	assert.Equal(t, held+1, testutil.ToFloat64(Holds.WithLabelValues("created")))

	published := testutil.ToFloat64(OutboxPublished)
	RecordOutboxPublished(3)
	assert.Equal(t, published+3, testutil.ToFloat64(OutboxPublished))
}
