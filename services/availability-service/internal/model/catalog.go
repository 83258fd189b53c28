package model

import (
	"errors"
	"time"
)

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Active          bool
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Staff struct {
	ID         string
	BusinessID string
	Name       string
	Active     bool
}

// Slot is a bookable [StartAt, EndAt) for one staff member. It is never persisted.
type Slot struct {
	StaffID   string
	StaffName string
	StartAt   time.Time
	EndAt     time.Time
}

// ErrNotFound is returned by stores for unknown tenants, services or staff.
var ErrNotFound = errors.New("not found")
