package model

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// RuleKind discriminates availability rules.
type RuleKind int

const (
	RuleWeekly RuleKind = iota + 1
	RuleException
	RuleClosure
)

func (k RuleKind) String() string {
	switch k {
	case RuleWeekly:
		return "weekly"
	case RuleException:
		return "exception"
	case RuleClosure:
		return "closure"
	default:
		return fmt.Sprintf("RuleKind(%d)", int(k))
	}
}

var ErrUnknownRuleKind = errors.New("unknown rule kind")

func ParseRuleKind(s string) (RuleKind, error) {
	switch s {
	case "weekly":
		return RuleWeekly, nil
	case "exception":
		return RuleException, nil
	case "closure":
		return RuleClosure, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRuleKind, s)
	}
}

// AvailabilityRule is a weekly window, a dated extra window (exception) or a dated closure.
// An empty ServiceID applies the rule to every service of the staff member.
type AvailabilityRule struct {
	ID        string
	StaffID   string
	ServiceID string
	Kind      RuleKind
	Weekday   *time.Weekday // Weekly only; 0 = Sunday
	Date      *civil.Date   // Exception and Closure only
	StartTime civil.Time
	EndTime   civil.Time
	Capacity  int
}

var ErrInvalidRule = errors.New("invalid availability rule")

func (r AvailabilityRule) Validate() error {
	switch r.Kind {
	case RuleWeekly:
		if r.Weekday == nil || r.Date != nil {
			return fmt.Errorf("%w %s: weekly rule needs a weekday and no date", ErrInvalidRule, r.ID)
		}
		if *r.Weekday < time.Sunday || *r.Weekday > time.Saturday {
			return fmt.Errorf("%w %s: weekday %d out of range", ErrInvalidRule, r.ID, *r.Weekday)
		}
	case RuleException, RuleClosure:
		if r.Date == nil || r.Weekday != nil {
			return fmt.Errorf("%w %s: %s rule needs a date and no weekday", ErrInvalidRule, r.ID, r.Kind)
		}
		if !r.Date.IsValid() {
			return fmt.Errorf("%w %s: invalid date %s", ErrInvalidRule, r.ID, r.Date)
		}
	default:
		return fmt.Errorf("%w %s: %v", ErrUnknownRuleKind, r.ID, r.Kind)
	}

	if r.Kind != RuleClosure {
		if !r.StartTime.IsValid() || !r.EndTime.IsValid() {
			return fmt.Errorf("%w %s: invalid time of day", ErrInvalidRule, r.ID)
		}
		if !TimeBefore(r.StartTime, r.EndTime) {
			return fmt.Errorf("%w %s: start %s not before end %s", ErrInvalidRule, r.ID, r.StartTime, r.EndTime)
		}
	}
	if r.Capacity < 1 {
		return fmt.Errorf("%w %s: capacity %d < 1", ErrInvalidRule, r.ID, r.Capacity)
	}
	return nil
}

// AppliesTo reports whether the rule covers serviceID.
func (r AvailabilityRule) AppliesTo(serviceID string) bool {
	return r.ServiceID == "" || r.ServiceID == serviceID
}

// TimeBefore orders two wall-clock times of day.
func TimeBefore(a, b civil.Time) bool {
	return timeNanos(a) < timeNanos(b)
}

func timeNanos(t civil.Time) int64 {
	return ((int64(t.Hour)*60+int64(t.Minute))*60+int64(t.Second))*int64(time.Second) + int64(t.Nanosecond)
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (civil.Time, error) {
	if len(s) == len("15:04") {
		s += ":00"
	}
	t, err := civil.ParseTime(s)
	if err != nil {
		return civil.Time{}, fmt.Errorf("invalid time of day %q", s)
	}
	return t, nil
}

func WeekdayPtr(d time.Weekday) *time.Weekday { return &d }

func DatePtr(d civil.Date) *civil.Date { return &d }
