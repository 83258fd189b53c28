package availability

import "github.com/slotwise/slotwise/services/availability-service/internal/model"

// BlackoutIntervals keeps the blackouts that affect staffID: its own and the business-wide ones.
func BlackoutIntervals(blackouts []model.Blackout, staffID string) []Interval {
	out := make([]Interval, 0, len(blackouts))
	for _, b := range blackouts {
		if !b.BusinessWide() && b.StaffID != staffID {
			continue
		}
		iv := Interval{Start: b.StartAt, End: b.EndAt}
		if iv.Valid() {
			out = append(out, iv)
		}
	}
	return out
}

// ApplyBlackouts merges windows, then removes blackout time from each.
// The result is sorted and disjoint.
func ApplyBlackouts(windows []Window, blackouts []Interval) []Window {
	var out []Window
	for _, w := range MergeWindows(windows) {
		for _, piece := range Subtract(w.Interval, blackouts) {
			out = append(out, Window{Interval: piece, Capacity: w.Capacity})
		}
	}
	return out
}
