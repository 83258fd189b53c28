package availability

import (
	"slices"
	"time"
)

// Interval is a half-open instant range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool { return i.End.After(i.Start) }

// Overlaps uses half-open semantics: touching intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Window is an availability interval carrying the capacity of the rule that produced it.
type Window struct {
	Interval
	Capacity int
}

func compareIntervals(a, b Interval) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return a.End.Compare(b.End)
}

// Merge sorts in and coalesces overlapping or touching intervals. Invalid intervals are dropped.
func Merge(in []Interval) []Interval {
	sorted := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv.Valid() {
			sorted = append(sorted, iv)
		}
	}
	slices.SortFunc(sorted, compareIntervals)

	out := make([]Interval, 0, len(sorted))
	for _, cur := range sorted {
		if n := len(out); n > 0 && !cur.Start.After(out[n-1].End) {
			if cur.End.After(out[n-1].End) {
				out[n-1].End = cur.End
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}

// MergeWindows is Merge for windows; a merged window keeps the largest capacity.
func MergeWindows(in []Window) []Window {
	sorted := make([]Window, 0, len(in))
	for _, w := range in {
		if w.Valid() {
			sorted = append(sorted, w)
		}
	}
	slices.SortFunc(sorted, func(a, b Window) int { return compareIntervals(a.Interval, b.Interval) })

	out := make([]Window, 0, len(sorted))
	for _, cur := range sorted {
		if n := len(out); n > 0 && !cur.Start.After(out[n-1].End) {
			last := &out[n-1]
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			last.Capacity = max(last.Capacity, cur.Capacity)
			continue
		}
		out = append(out, cur)
	}
	return out
}

// Subtract removes every cut from base. The result is sorted and disjoint;
// a single cut can leave zero, one or two pieces.
func Subtract(base Interval, cuts []Interval) []Interval {
	if !base.Valid() {
		return nil
	}
	var clipped []Interval
	for _, c := range cuts {
		if !c.Overlaps(base) {
			continue
		}
		if c.Start.Before(base.Start) {
			c.Start = base.Start
		}
		if c.End.After(base.End) {
			c.End = base.End
		}
		clipped = append(clipped, c)
	}
	if len(clipped) == 0 {
		return []Interval{base}
	}

	var out []Interval
	cursor := base.Start
	for _, m := range Merge(clipped) {
		if m.Start.After(cursor) {
			out = append(out, Interval{Start: cursor, End: m.Start})
		}
		if m.End.After(cursor) {
			cursor = m.End
		}
	}
	if base.End.After(cursor) {
		out = append(out, Interval{Start: cursor, End: base.End})
	}
	return out
}
