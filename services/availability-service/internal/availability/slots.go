package availability

import (
	"time"

	"cloud.google.com/go/civil"
)

type SlotParams struct {
	Duration       time.Duration
	Granularity    time.Duration
	Location       *time.Location
	Now            time.Time
	MinLead        time.Duration
	MaxAdvanceDays int
}

// GenerateSlots walks each window on the local-time grid and returns every [start, start+Duration)
// that fits in its window, starts no earlier than Now+MinLead and starts on a local date no later
// than today+MaxAdvanceDays. Windows must be sorted and disjoint; the output is ordered.
func GenerateSlots(windows []Window, p SlotParams) []Interval {
	if p.Duration <= 0 || p.Granularity <= 0 || p.Location == nil {
		return nil
	}
	earliest := p.Now.Add(p.MinLead)
	lastDate := civil.DateOf(p.Now.In(p.Location)).AddDays(p.MaxAdvanceDays)

	var slots []Interval
	for _, w := range windows {
		for t := AlignUp(w.Start, p.Location, p.Granularity); ; t = AlignUp(t.Add(p.Granularity), p.Location, p.Granularity) {
			end := t.Add(p.Duration)
			if end.After(w.End) {
				break
			}
			if civil.DateOf(t.In(p.Location)).After(lastDate) {
				return slots
			}
			slot := Interval{Start: t, End: end}
			if t.Before(earliest) || !w.Contains(slot) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

// AlignUp returns the first instant at or after t whose local wall-clock time in loc is a
// multiple of gran since local midnight. It steps forward in absolute time, so a repeated
// hour at fall-back or a skipped hour at spring-forward never moves the result before t.
func AlignUp(t time.Time, loc *time.Location, gran time.Duration) time.Time {
	for {
		rem := sinceLocalMidnight(t.In(loc)) % gran
		if rem == 0 {
			return t
		}
		t = t.Add(gran - rem)
	}
}

func sinceLocalMidnight(lt time.Time) time.Duration {
	return time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())
}
