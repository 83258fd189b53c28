package model

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no_show"
)

// ActiveStatuses block conflicting slots; the storage exclusion constraint uses the same set.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusCompleted}

func (s BookingStatus) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s BookingStatus) Valid() bool {
	return s.Active() || s == StatusCancelled || s == StatusNoShow
}

type Booking struct {
	ID            string
	BusinessID    string
	StaffID       string
	ServiceID     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StartAt       time.Time
	EndAt         time.Time
	Status        BookingStatus
	DeletedAt     *time.Time
	CreatedAt     time.Time
}

// Blocking reports whether the booking occupies staff time.
func (b Booking) Blocking() bool {
	return b.DeletedAt == nil && b.Status.Active()
}
