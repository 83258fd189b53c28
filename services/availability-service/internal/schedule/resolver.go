package schedule

import (
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/slotwise/slotwise/services/availability-service/internal/availability"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

// Window is a local wall-clock availability window on one date.
type Window struct {
	RuleID   string
	Start    civil.Time
	End      civil.Time
	Capacity int
}

// Resolve returns the windows that rules open on date for serviceID.
// A closure on date wins over everything; otherwise weekly windows for the date's
// weekday and exception windows for the date are combined.
func Resolve(rules []model.AvailabilityRule, serviceID string, date civil.Date, loc *time.Location) ([]Window, error) {
	weekday := Weekday(date, loc)

	var windows []Window
	for _, r := range rules {
		if !r.AppliesTo(serviceID) {
			continue
		}
		switch r.Kind {
		case model.RuleClosure:
			if r.Date != nil && *r.Date == date {
				if err := r.Validate(); err != nil {
					return nil, err
				}
				return nil, nil
			}
		case model.RuleWeekly:
			if r.Weekday == nil || *r.Weekday != weekday {
				continue
			}
			if err := r.Validate(); err != nil {
				return nil, err
			}
			windows = append(windows, windowOf(r))
		case model.RuleException:
			if r.Date == nil || *r.Date != date {
				continue
			}
			if err := r.Validate(); err != nil {
				return nil, err
			}
			windows = append(windows, windowOf(r))
		default:
			return nil, fmt.Errorf("%w: rule %s has kind %v", model.ErrUnknownRuleKind, r.ID, r.Kind)
		}
	}

	slices.SortFunc(windows, func(a, b Window) int {
		switch {
		case model.TimeBefore(a.Start, b.Start):
			return -1
		case model.TimeBefore(b.Start, a.Start):
			return 1
		default:
			return 0
		}
	})
	return windows, nil
}

func windowOf(r model.AvailabilityRule) Window {
	return Window{RuleID: r.ID, Start: r.StartTime, End: r.EndTime, Capacity: r.Capacity}
}

// ToIntervals places local windows on date as instants. Offsets are looked up for that
// specific date, so a 23 or 25 hour day converts correctly.
func ToIntervals(date civil.Date, windows []Window, loc *time.Location) []availability.Window {
	out := make([]availability.Window, 0, len(windows))
	for _, w := range windows {
		iv := availability.Interval{Start: At(date, w.Start, loc), End: At(date, w.End, loc)}
		if !iv.Valid() {
			continue
		}
		out = append(out, availability.Window{Interval: iv, Capacity: w.Capacity})
	}
	return out
}
