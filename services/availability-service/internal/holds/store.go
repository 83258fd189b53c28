package holds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/slotwise/slotwise/services/availability-service/internal/metrics"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

const DefaultTTL = 15 * time.Minute

var (
	ErrConflict = errors.New("slot is already held")
	ErrNotFound = errors.New("hold not found")
)

// Store keeps holds in one Redis sorted set per staff member, scored by expiry in unix millis.
type Store struct {
	rdb   redis.Cmdable
	ttl   time.Duration
	now   func() time.Time
	newID func() string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func NewStore(rdb redis.Cmdable, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{rdb: rdb, ttl: ttl, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record is the sorted-set member. The create script reads start_ms and end_ms.
type record struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	StaffID    string `json:"staff_id"`
	ServiceID  string `json:"service_id"`
	StartMs    int64  `json:"start_ms"`
	EndMs      int64  `json:"end_ms"`
	ExpiresMs  int64  `json:"expires_ms"`
}

func (r record) hold() model.Hold {
	return model.Hold{
		ID:         r.ID,
		BusinessID: r.BusinessID,
		StaffID:    r.StaffID,
		ServiceID:  r.ServiceID,
		StartAt:    time.UnixMilli(r.StartMs).UTC(),
		EndAt:      time.UnixMilli(r.EndMs).UTC(),
		ExpiresAt:  time.UnixMilli(r.ExpiresMs).UTC(),
	}
}

func staffKey(businessID, staffID string) string {
	return "holds:" + businessID + ":" + staffID
}

// ARGV: member, now_ms, start_ms, end_ms, expires_ms, ttl_ms.
var createScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
local start = tonumber(ARGV[3])
local finish = tonumber(ARGV[4])
for _, raw in ipairs(redis.call("ZRANGE", KEYS[1], 0, -1)) do
  local h = cjson.decode(raw)
  if h.start_ms < finish and start < h.end_ms then
    return 0
  end
end
redis.call("ZADD", KEYS[1], ARGV[5], ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[6])
return 1
`)

// ARGV: hold id.
var releaseScript = redis.NewScript(`
for _, raw in ipairs(redis.call("ZRANGE", KEYS[1], 0, -1)) do
  local h = cjson.decode(raw)
  if h.id == ARGV[1] then
    redis.call("ZREM", KEYS[1], raw)
    return 1
  end
end
return 0
`)

// Create stores a hold on [h.StartAt, h.EndAt) unless an unexpired hold of the same staff
// member overlaps it. ID and ExpiresAt are assigned here.
func (s *Store) Create(ctx context.Context, h model.Hold) (model.Hold, error) {
	if strings.TrimSpace(h.BusinessID) == "" || strings.TrimSpace(h.StaffID) == "" {
		return model.Hold{}, errors.New("hold needs business and staff")
	}
	if !h.EndAt.After(h.StartAt) {
		return model.Hold{}, errors.New("hold end must be after start")
	}
	now := s.now()
	rec := record{
		ID:         s.newID(),
		BusinessID: h.BusinessID,
		StaffID:    h.StaffID,
		ServiceID:  h.ServiceID,
		StartMs:    h.StartAt.UnixMilli(),
		EndMs:      h.EndAt.UnixMilli(),
		ExpiresMs:  now.Add(s.ttl).UnixMilli(),
	}
	member, err := json.Marshal(rec)
	if err != nil {
		return model.Hold{}, err
	}

	ok, err := createScript.Run(ctx, s.rdb, []string{staffKey(h.BusinessID, h.StaffID)},
		string(member), now.UnixMilli(), rec.StartMs, rec.EndMs, rec.ExpiresMs, s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		metrics.RecordHold("error")
		return model.Hold{}, fmt.Errorf("create hold: %w", err)
	}
	if ok == 0 {
		metrics.RecordHold("conflict")
		return model.Hold{}, ErrConflict
	}
	metrics.RecordHold("created")
	return rec.hold(), nil
}

func (s *Store) Release(ctx context.Context, businessID, staffID, holdID string) error {
	n, err := releaseScript.Run(ctx, s.rdb, []string{staffKey(businessID, staffID)}, holdID).Int64()
	if err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	metrics.RecordHold("released")
	return nil
}

// ListHolds returns unexpired holds of the staff member overlapping [start, end).
func (s *Store) ListHolds(ctx context.Context, businessID, staffID string, start, end time.Time) ([]model.Hold, error) {
	raw, err := s.rdb.ZRangeByScore(ctx, staffKey(businessID, staffID), &redis.ZRangeBy{
		Min: fmt.Sprintf("(%d", s.now().UnixMilli()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	out := make([]model.Hold, 0, len(raw))
	for _, m := range raw {
		var rec record
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			return nil, fmt.Errorf("decode hold: %w", err)
		}
		if rec.StartMs < end.UnixMilli() && start.UnixMilli() < rec.EndMs {
			out = append(out, rec.hold())
		}
	}
	return out, nil
}

func ReadyCheck(rdb redis.Cmdable) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
