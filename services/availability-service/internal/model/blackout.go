package model

import "time"

// Blackout is an absolute time range with no bookings. Empty StaffID = whole business.
type Blackout struct {
	ID      string
	StaffID string
	StartAt time.Time
	EndAt   time.Time
	Reason  string
}

func (b Blackout) BusinessWide() bool { return b.StaffID == "" }

// Hold temporarily reserves a slot for a customer who is completing checkout.
type Hold struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	StaffID    string    `json:"staff_id"`
	ServiceID  string    `json:"service_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
