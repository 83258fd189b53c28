package availability

import (
	"time"

	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

// BusyFromBookings returns the intervals of blocking bookings. Cancelled, no-show and
// soft-deleted bookings are skipped even if a store returned them.
func BusyFromBookings(bookings []model.Booking) []Interval {
	out := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.Blocking() {
			out = append(out, Interval{Start: b.StartAt, End: b.EndAt})
		}
	}
	return out
}

// BusyFromHolds returns the intervals of holds that have not expired at now.
func BusyFromHolds(holds []model.Hold, now time.Time) []Interval {
	out := make([]Interval, 0, len(holds))
	for _, h := range holds {
		if h.ExpiresAt.After(now) {
			out = append(out, Interval{Start: h.StartAt, End: h.EndAt})
		}
	}
	return out
}

// RemoveConflicts drops every slot that overlaps a busy interval.
func RemoveConflicts(slots []Interval, busy []Interval) []Interval {
	if len(busy) == 0 {
		return slots
	}
	out := make([]Interval, 0, len(slots))
	for _, s := range slots {
		if !overlapsAny(s, busy) {
			out = append(out, s)
		}
	}
	return out
}

func overlapsAny(s Interval, busy []Interval) bool {
	for _, b := range busy {
		// existing.start < candidate.end && existing.end > candidate.start
		if b.Start.Before(s.End) && b.End.After(s.Start) {
			return true
		}
	}
	return false
}
