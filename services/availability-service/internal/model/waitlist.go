package model

import "time"

// WaitlistTTL is how long a waitlist entry stays open.
const WaitlistTTL = 30 * 24 * time.Hour

const WaitlistWaiting = "waiting"

// WaitlistEntry asks to be told when a slot for ServiceID opens, optionally with one staff
// member and inside a preferred time range.
type WaitlistEntry struct {
	ID               string
	BusinessID       string
	ServiceID        string
	StaffID          string // empty for any staff member
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	PreferredStartAt *time.Time
	PreferredEndAt   *time.Time
	Priority         int
	Status           string
	ExpiresAt        time.Time
	CreatedAt        time.Time
}
