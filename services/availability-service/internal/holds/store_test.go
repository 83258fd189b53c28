package holds

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	s := NewStore(rdb, 10*time.Minute,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "hold-1" }),
	)
	return s, mock
}

func member(t *testing.T, r record) string {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return string(b)
}

func slot(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func TestCreate(t *testing.T) {
	s, mock := newTestStore(t)
	want := record{
		ID: "hold-1", BusinessID: "biz", StaffID: "s1", ServiceID: "svc",
		StartMs: slot(9, 0).UnixMilli(), EndMs: slot(9, 30).UnixMilli(),
		ExpiresMs: now.Add(10 * time.Minute).UnixMilli(),
	}
	mock.ExpectEvalSha(createScript.Hash(), []string{"holds:biz:s1"},
		member(t, want), now.UnixMilli(), want.StartMs, want.EndMs, want.ExpiresMs, int64(600000),
	).SetVal(int64(1))

	h, err := s.Create(context.Background(), model.Hold{BusinessID: "biz", StaffID: "s1", ServiceID: "svc", StartAt: slot(9, 0), EndAt: slot(9, 30)})
	require.NoError(t, err)
	assert.Equal(t, "hold-1", h.ID)
	assert.True(t, h.StartAt.Equal(slot(9, 0)))
	assert.True(t, h.ExpiresAt.Equal(now.Add(10*time.Minute)))
}

func TestCreateConflict(t *testing.T) {
	s, mock := newTestStore(t)
	want := record{
		ID: "hold-1", BusinessID: "biz", StaffID: "s1",
		StartMs: slot(9, 0).UnixMilli(), EndMs: slot(9, 30).UnixMilli(),
		ExpiresMs: now.Add(10 * time.Minute).UnixMilli(),
	}
	mock.ExpectEvalSha(createScript.Hash(), []string{"holds:biz:s1"},
		member(t, want), now.UnixMilli(), want.StartMs, want.EndMs, want.ExpiresMs, int64(600000),
	).SetVal(int64(0))

	_, err := s.Create(context.Background(), model.Hold{BusinessID: "biz", StaffID: "s1", StartAt: slot(9, 0), EndAt: slot(9, 30)})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateRejectsEmptyRange(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Create(context.Background(), model.Hold{BusinessID: "biz", StaffID: "s1", StartAt: slot(9, 0), EndAt: slot(9, 0)})
	assert.Error(t, err)
}

func TestRelease(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"holds:biz:s1"}, "hold-1").SetVal(int64(1))
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"holds:biz:s1"}, "gone").SetVal(int64(0))

	require.NoError(t, s.Release(context.Background(), "biz", "s1", "hold-1"))
	assert.ErrorIs(t, s.Release(context.Background(), "biz", "s1", "gone"), ErrNotFound)
}

func TestListHoldsFiltersByRange(t *testing.T) {
	s, mock := newTestStore(t)
	morning := record{ID: "a", BusinessID: "biz", StaffID: "s1", StartMs: slot(9, 0).UnixMilli(), EndMs: slot(9, 30).UnixMilli(), ExpiresMs: now.Add(time.Minute).UnixMilli()}
	nextDay := record{ID: "b", BusinessID: "biz", StaffID: "s1", StartMs: slot(9, 0).Add(24 * time.Hour).UnixMilli(), EndMs: slot(9, 30).Add(24 * time.Hour).UnixMilli(), ExpiresMs: now.Add(time.Minute).UnixMilli()}
	mock.ExpectZRangeByScore("holds:biz:s1", &redis.ZRangeBy{Min: "(1772366400000", Max: "+inf"}).
		SetVal([]string{member(t, morning), member(t, nextDay)})

	got, err := s.ListHolds(context.Background(), "biz", "s1", slot(0, 0), slot(0, 0).Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.True(t, got[0].EndAt.Equal(slot(9, 30)))
}

func TestListHoldsUnavailable(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectZRangeByScore("holds:biz:s1", &redis.ZRangeBy{Min: "(1772366400000", Max: "+inf"}).
		SetErr(errors.New("connection refused"))

	holds, err := s.ListHolds(context.Background(), "biz", "s1", slot(0, 0), slot(23, 0))
	assert.Error(t, err)
	assert.Nil(t, holds)
}
