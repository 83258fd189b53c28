package handlers

import (
	"net/http"

	"github.com/slotwise/slotwise/libs/httpx"
)

// Register mounts the public and admin routes. admin guards the admin routes.
func Register(mux *http.ServeMux, availability *AvailabilityHandler, booking *BookingHandler, waitlist *WaitlistHandler, admin httpx.Middleware) {
	mux.HandleFunc("GET /api/v1/public/slots", availability.Slots)
	mux.HandleFunc("GET /api/v1/public/slots/range", availability.Range)
	mux.HandleFunc("POST /api/v1/public/holds", booking.CreateHold)
	mux.HandleFunc("DELETE /api/v1/public/holds/{hold_id}", booking.ReleaseHold)
	mux.HandleFunc("POST /api/v1/public/book", booking.Book)
	mux.HandleFunc("POST /api/v1/public/waitlist", waitlist.Join)
	mux.Handle("GET /api/v1/admin/calendar", admin(http.HandlerFunc(availability.Calendar)))
}
