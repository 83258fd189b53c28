package engine

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

// Store implementations return model.ErrNotFound (or an error wrapping it) for unknown ids;
// any other error is treated as the store being unavailable.

type SettingsStore interface {
	GetSettings(ctx context.Context, businessID string) (model.BusinessSettings, error)
}

type CatalogStore interface {
	GetService(ctx context.Context, businessID, serviceID string) (model.Service, error)
	GetStaff(ctx context.Context, businessID, staffID string) (model.Staff, error)
	// ListStaffForService returns active staff assigned to the service.
	ListStaffForService(ctx context.Context, businessID, serviceID string) ([]model.Staff, error)
}

type RuleStore interface {
	// ListRules returns live weekly rules plus dated rules in [from, to] for the staff member,
	// limited to serviceID and service-agnostic rules.
	ListRules(ctx context.Context, businessID, staffID, serviceID string, from, to civil.Date) ([]model.AvailabilityRule, error)
}

type BlackoutStore interface {
	// ListBlackouts returns staff and business-wide blackouts overlapping [start, end).
	ListBlackouts(ctx context.Context, businessID, staffID string, start, end time.Time) ([]model.Blackout, error)
}

type BookingStore interface {
	ListActiveBookings(ctx context.Context, businessID, staffID string, start, end time.Time) ([]model.Booking, error)
}

type HoldStore interface {
	ListHolds(ctx context.Context, businessID, staffID string, start, end time.Time) ([]model.Hold, error)
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var SystemClock Clock = ClockFunc(time.Now)
