package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

// LoadLocation resolves an IANA zone name. Empty names and "Local" are rejected
// instead of silently becoming UTC or the host zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, name, err)
	}
	return loc, nil
}

// LocalDate returns the calendar date and weekday of instant as seen in loc.
func LocalDate(instant time.Time, loc *time.Location) (civil.Date, time.Weekday) {
	lt := instant.In(loc)
	return civil.DateOf(lt), lt.Weekday()
}

// Weekday of a business-local calendar date. Noon is used so a midnight DST jump cannot
// move the probe onto a neighbouring day.
func Weekday(date civil.Date, loc *time.Location) time.Weekday {
	return time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, loc).Weekday()
}

// At converts a wall-clock time on date in loc to an instant, using loc's offset for that date.
// A wall time skipped by a DST jump moves forward by the length of the jump (02:30 becomes
// 03:30 on a spring-forward day); a repeated wall time resolves to its first occurrence.
func At(date civil.Date, clock civil.Time, loc *time.Location) time.Time {
	t := time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, clock.Second, clock.Nanosecond, loc)
	want := time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, clock.Second, clock.Nanosecond, time.UTC)
	if gap := want.Sub(wall(t.In(loc))); gap > 0 {
		return t.Add(gap)
	}
	return t
}

func wall(lt time.Time) time.Time {
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), time.UTC)
}

// DayBounds returns [local midnight of date, local midnight of the next day).
func DayBounds(date civil.Date, loc *time.Location) (time.Time, time.Time) {
	return At(date, civil.Time{}, loc), At(date.AddDays(1), civil.Time{}, loc)
}
