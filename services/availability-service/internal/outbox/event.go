package outbox

import (
	"encoding/json"
	"time"

	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

// Event is the envelope written to outbox_events. The Kafka topic is EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const EventBookingBooked = "booking.appointment.booked.v1"

type BookedPayload struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	StaffID       string `json:"staff_id"`
	ServiceID     string `json:"service_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// BookedEvent builds the event announcing a new booking.
func BookedEvent(b model.Booking) (Event, error) {
	payload, err := json.Marshal(BookedPayload{
		AppointmentID: b.ID,
		BusinessID:    b.BusinessID,
		StaffID:       b.StaffID,
		ServiceID:     b.ServiceID,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		StartTime:     b.StartAt.UTC().Format(time.RFC3339),
		EndTime:       b.EndAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   b.ID,
		EventType:     EventBookingBooked,
		Payload:       payload,
	}, nil
}
