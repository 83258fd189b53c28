package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesQuery(t *testing.T) {
	from := civil.Date{Year: 2026, Month: time.March, Day: 2}
	query, args, err := rulesQuery("biz", "staff", "svc", from, from.AddDays(6)).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM availability_rules")
	assert.Contains(t, query, "deleted_at IS NULL")
	assert.Contains(t, query, "(service_id IS NULL OR service_id = $")
	assert.Contains(t, query, "(kind = $")
	assert.Contains(t, query, "rule_date >= $")
	assert.Contains(t, query, "rule_date <= $")
	assert.NotContains(t, query, "?")
	assert.Equal(t, []any{
		"biz", "staff", "svc", "weekly",
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	}, args)
}

func TestBlackoutsQueryIncludesBusinessWide(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	query, args, err := blackoutsQuery("biz", "staff", start, end).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "(staff_id IS NULL OR staff_id = $2)")
	assert.Contains(t, query, "start_at < $3")
	assert.Contains(t, query, "end_at > $4")
	assert.Equal(t, []any{"biz", "staff", end, start}, args)
}

func TestActiveBookingsQuery(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	q := bookingsQuery("biz", start, end).Where(map[string]any{"staff_id": "staff", "status": activeStatuses()})
	query, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "status IN ($")
	assert.Contains(t, query, "deleted_at IS NULL")
	assert.Contains(t, args, "pending")
	assert.Contains(t, args, "confirmed")
	assert.Contains(t, args, "completed")
	assert.NotContains(t, args, "cancelled")
}

func TestBookingsQueryKeepsEveryStatus(t *testing.T) {
	start := time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	query, args, err := bookingsQuery("biz", start, end).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM bookings")
	assert.NotContains(t, query, "status IN")
	assert.Contains(t, query, "start_at < $")
	assert.Contains(t, query, "end_at > $")
	assert.Contains(t, query, "ORDER BY start_at, id")
	assert.Equal(t, []any{"biz", end, start}, args)
}

func TestStaffForServiceQuery(t *testing.T) {
	query, args, err := staffForServiceQuery("biz", "svc").ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "JOIN staff_services ss ON ss.staff_id = s.id")
	assert.Contains(t, query, "ORDER BY s.name, s.id")
	assert.Equal(t, []any{true, "biz", "svc"}, args)
}

func TestClockOf(t *testing.T) {
	got := clockOf(pgtype.Time{Microseconds: int64((9*time.Hour + 30*time.Minute + 15*time.Second) / time.Microsecond), Valid: true})
	assert.Equal(t, civil.Time{Hour: 9, Minute: 30, Second: 15}, got)
	assert.Equal(t, civil.Time{}, clockOf(pgtype.Time{}))
}

func TestErrorMapping(t *testing.T) {
	assert.ErrorIs(t, mapErr(pgx.ErrNoRows), model.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}), model.ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapErr(other))

	assert.True(t, IsConflict(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"})))
	assert.False(t, IsConflict(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23P01"}))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
}

func TestWaitlistInsert(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	expires := start.Add(model.WaitlistTTL)
	e := model.WaitlistEntry{
		BusinessID:       "biz",
		ServiceID:        "svc",
		CustomerName:     "Dana",
		CustomerEmail:    "dana@example.com",
		PreferredStartAt: &start,
		Priority:         2,
		ExpiresAt:        expires,
	}
	query, args, err := waitlistInsert(e).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO waitlist_entries")
	assert.Contains(t, query, "SELECT s.business_id, s.id, $1::uuid")
	assert.Contains(t, query, "FROM services s")
	assert.Contains(t, query, "RETURNING id::text, created_at")
	assert.NotContains(t, query, "staff_services")
	assert.NotContains(t, query, "?")
	require.Len(t, args, 11)
	assert.Nil(t, args[0])
	assert.Equal(t, "Dana", args[1])
	assert.Equal(t, &start, args[4])
	assert.Equal(t, 2, args[6])
	assert.Equal(t, expires, args[7])

	e.StaffID = "s1"
	query, args, err = waitlistInsert(e).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "FROM staff_services ss JOIN staff st")
	assert.Equal(t, "s1", args[0])
	assert.Equal(t, "s1", args[len(args)-1])
}
