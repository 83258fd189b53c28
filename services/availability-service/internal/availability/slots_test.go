package availability

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func starts(slots []Interval, loc *time.Location) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.In(loc).Format("15:04"))
	}
	return out
}

func TestAlignUp(t *testing.T) {
	loc := loadLoc(t, "Europe/Berlin")
	open := time.Date(2026, 3, 2, 8, 10, 0, 0, loc)
	assert.True(t, AlignUp(open, loc, 30*time.Minute).Equal(time.Date(2026, 3, 2, 8, 30, 0, 0, loc)))

	exact := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	assert.True(t, AlignUp(exact, loc, 30*time.Minute).Equal(exact))

	late := time.Date(2026, 3, 2, 23, 45, 0, 0, loc)
	assert.True(t, AlignUp(late, loc, 30*time.Minute).Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, loc)))

	// Kathmandu is UTC+05:45: alignment follows the local clock, not UTC.
	ktm := loadLoc(t, "Asia/Kathmandu")
	got := AlignUp(time.Date(2026, 3, 2, 9, 5, 0, 0, ktm), ktm, 30*time.Minute)
	assert.Equal(t, "09:30", got.In(ktm).Format("15:04"))
}

func TestAlignUpNeverMovesBackAcrossDST(t *testing.T) {
	ny := loadLoc(t, "America/New_York")
	gran := 30 * time.Minute

	// 01:10 EST is in the second, repeated 01:00 hour of 2026-11-01.
	in := time.Date(2026, 11, 1, 6, 10, 0, 0, time.UTC)
	got := AlignUp(in, ny, gran)
	assert.False(t, got.Before(in))
	assert.True(t, got.Equal(time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC)), got)
	assert.Equal(t, "01:30 EST", got.In(ny).Format("15:04 MST"))

	// 01:50 EST on 2026-03-08: the next grid point is 03:00 EDT, ten minutes later.
	in = time.Date(2026, 3, 8, 6, 50, 0, 0, time.UTC)
	got = AlignUp(in, ny, gran)
	assert.True(t, got.Equal(time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC)), got)
	assert.Equal(t, "03:00 EDT", got.In(ny).Format("15:04 MST"))

	// 01:50 EDT, before the fall-back: the next grid point is 01:00 EST.
	in = time.Date(2026, 11, 1, 5, 50, 0, 0, time.UTC)
	got = AlignUp(in, ny, gran)
	assert.True(t, got.Equal(time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC)), got)
}

func TestGenerateSlotsStayInsideWindowAcrossDST(t *testing.T) {
	ny := loadLoc(t, "America/New_York")
	p := SlotParams{
		Duration:       30 * time.Minute,
		Granularity:    30 * time.Minute,
		Location:       ny,
		Now:            time.Date(2026, 2, 20, 0, 0, 0, 0, ny),
		MaxAdvanceDays: 365,
	}

	// Window reopening at 01:10 EST after a blackout on the fall-back day.
	fall := Window{Interval: Interval{
		Start: time.Date(2026, 11, 1, 6, 10, 0, 0, time.UTC),
		End:   time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC),
	}, Capacity: 1}
	slots := GenerateSlots([]Window{fall}, p)
	require.Len(t, slots, 3)
	assert.True(t, slots[0].Start.Equal(time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC)))
	for _, s := range slots {
		assert.True(t, fall.Contains(s), s)
	}

	// Window reopening at 01:50 EST on the spring-forward day.
	spring := Window{Interval: Interval{
		Start: time.Date(2026, 3, 8, 6, 50, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC),
	}, Capacity: 1}
	slots = GenerateSlots([]Window{spring}, p)
	assert.Equal(t, []string{"03:00", "03:30", "04:00", "04:30"}, starts(slots, ny))
	for _, s := range slots {
		assert.True(t, spring.Contains(s), s)
	}
}

func TestGenerateSlotsBasic(t *testing.T) {
	loc := time.UTC
	w := []Window{{Interval: iv(8, 10, 10, 0), Capacity: 1}}
	slots := GenerateSlots(w, SlotParams{
		Duration:       30 * time.Minute,
		Granularity:    30 * time.Minute,
		Location:       loc,
		Now:            day.Add(-24 * time.Hour),
		MaxAdvanceDays: 30,
	})
	assert.Equal(t, []string{"08:30", "09:00", "09:30"}, starts(slots, loc))
	for _, s := range slots {
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
	}
}

func TestGenerateSlotsDurationMustFit(t *testing.T) {
	w := []Window{{Interval: iv(9, 0, 10, 0), Capacity: 1}}
	slots := GenerateSlots(w, SlotParams{
		Duration:       45 * time.Minute,
		Granularity:    30 * time.Minute,
		Location:       time.UTC,
		Now:            day.Add(-time.Hour),
		MaxAdvanceDays: 1,
	})
	assert.Equal(t, []string{"09:00"}, starts(slots, time.UTC))
}

func TestGenerateSlotsLeadTime(t *testing.T) {
	w := []Window{{Interval: iv(9, 0, 17, 0), Capacity: 1}}
	slots := GenerateSlots(w, SlotParams{
		Duration:       30 * time.Minute,
		Granularity:    30 * time.Minute,
		Location:       time.UTC,
		Now:            at(9, 30),
		MinLead:        120 * time.Minute,
		MaxAdvanceDays: 1,
	})
	require.NotEmpty(t, slots)
	assert.Equal(t, "11:30", slots[0].Start.Format("15:04"))
}

func TestGenerateSlotsHorizon(t *testing.T) {
	tomorrow := Window{Interval: Interval{Start: at(9, 0).AddDate(0, 0, 1), End: at(10, 0).AddDate(0, 0, 1)}, Capacity: 1}
	today := Window{Interval: iv(9, 0, 10, 0), Capacity: 1}
	p := SlotParams{
		Duration:    30 * time.Minute,
		Granularity: 30 * time.Minute,
		Location:    time.UTC,
		Now:         at(6, 0),
	}

	p.MaxAdvanceDays = 0
	assert.Len(t, GenerateSlots([]Window{today, tomorrow}, p), 2)

	p.MaxAdvanceDays = 1
	assert.Len(t, GenerateSlots([]Window{today, tomorrow}, p), 4)
}

func TestGenerateSlotsHorizonUsesBusinessDate(t *testing.T) {
	// 23:30 UTC on Mar 2 is already Mar 3 in Tokyo, so "today" is Mar 3 there.
	tokyo := loadLoc(t, "Asia/Tokyo")
	now := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	w := []Window{{Interval: Interval{
		Start: time.Date(2026, 3, 4, 9, 0, 0, 0, tokyo),
		End:   time.Date(2026, 3, 4, 10, 0, 0, 0, tokyo),
	}, Capacity: 1}}
	p := SlotParams{Duration: 30 * time.Minute, Granularity: 30 * time.Minute, Location: tokyo, Now: now, MaxAdvanceDays: 1}
	assert.Len(t, GenerateSlots(w, p), 2)
}

func TestGenerateSlotsSpringForward(t *testing.T) {
	ny := loadLoc(t, "America/New_York")
	// 2026-03-08 02:00 jumps to 03:00.
	w := []Window{{Interval: Interval{
		Start: time.Date(2026, 3, 8, 0, 0, 0, 0, ny),
		End:   time.Date(2026, 3, 8, 6, 0, 0, 0, ny),
	}, Capacity: 1}}
	slots := GenerateSlots(w, SlotParams{
		Duration:       30 * time.Minute,
		Granularity:    30 * time.Minute,
		Location:       ny,
		Now:            time.Date(2026, 3, 1, 0, 0, 0, 0, ny),
		MaxAdvanceDays: 30,
	})
	assert.Equal(t, []string{"00:00", "00:30", "01:00", "01:30", "03:00", "03:30", "04:00", "04:30", "05:00", "05:30"}, starts(slots, ny))
	for _, s := range slots {
		assert.Zero(t, s.Start.In(ny).Minute()%30)
	}
}

func TestGenerateSlotsFallBack(t *testing.T) {
	ny := loadLoc(t, "America/New_York")
	// 2026-11-01 02:00 EDT falls back to 01:00 EST; the local day has 25 hours.
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, ny)
	end := time.Date(2026, 11, 1, 3, 0, 0, 0, ny)
	w := []Window{{Interval: Interval{Start: start, End: end}, Capacity: 1}}
	slots := GenerateSlots(w, SlotParams{
		Duration:       30 * time.Minute,
		Granularity:    30 * time.Minute,
		Location:       ny,
		Now:            time.Date(2026, 10, 30, 0, 0, 0, 0, ny),
		MaxAdvanceDays: 30,
	})
	assert.Equal(t, []string{"00:00", "00:30", "01:00", "01:30", "01:00", "01:30", "02:00", "02:30"}, starts(slots, ny))
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, 30*time.Minute, slots[i].Start.Sub(slots[i-1].Start))
	}
}
