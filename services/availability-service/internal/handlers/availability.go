package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/slotwise/slotwise/libs/auth"
	"github.com/slotwise/slotwise/libs/httpx"
	"github.com/slotwise/slotwise/services/availability-service/internal/engine"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/slotwise/slotwise/services/availability-service/internal/schedule"
)

// Availability is the part of the engine the HTTP layer needs.
type Availability interface {
	GetAvailability(ctx context.Context, req engine.Request) ([]model.Slot, error)
	GetAvailabilityRange(ctx context.Context, req engine.RangeRequest) ([]model.Slot, error)
	IsOffered(ctx context.Context, req engine.OfferRequest) (bool, error)
	SlotEnd(ctx context.Context, businessID, serviceID string, start time.Time) (time.Time, error)
	Location(ctx context.Context, businessID string) (*time.Location, error)
}

// BookingLister lists the bookings shown on the admin calendar.
type BookingLister interface {
	ListBookings(ctx context.Context, businessID string, start, end time.Time) ([]model.Booking, error)
}

type AvailabilityHandler struct {
	engine   Availability
	bookings BookingLister
	logger   *slog.Logger
}

func NewAvailabilityHandler(e Availability, bookings BookingLister, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: e, bookings: bookings, logger: logger}
}

type slotsQuery struct {
	BusinessID string `query:"business_id" validate:"required"`
	ServiceID  string `query:"service_id" validate:"required"`
	StaffID    string `query:"staff_id"`
	Date       string `query:"date" validate:"required,datetime=2006-01-02"`
}

type rangeQuery struct {
	BusinessID string `query:"business_id" validate:"required"`
	ServiceID  string `query:"service_id" validate:"required"`
	StaffID    string `query:"staff_id"`
	From       string `query:"from" validate:"required,datetime=2006-01-02"`
	Days       int    `query:"days" validate:"gte=1,lte=31"`
}

type slotItem struct {
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	Slots []slotItem `json:"slots"`
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := slotsQuery{
		BusinessID: strings.TrimSpace(q.Get("business_id")),
		ServiceID:  strings.TrimSpace(q.Get("service_id")),
		StaffID:    strings.TrimSpace(q.Get("staff_id")),
		Date:       strings.TrimSpace(q.Get("date")),
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid date")
		return
	}

	slots, err := h.engine.GetAvailability(r.Context(), engine.Request{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		Date:       date,
	})
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{Slots: slotItems(slots)})
}

func (h *AvailabilityHandler) Range(w http.ResponseWriter, r *http.Request) {
	req, from, ok := parseRange(w, r, strings.TrimSpace(r.URL.Query().Get("business_id")))
	if !ok {
		return
	}
	slots, err := h.lookahead(r.Context(), req, from)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{Slots: slotItems(slots)})
}

type calendarSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type calendarStaff struct {
	StaffID   string         `json:"staff_id"`
	StaffName string         `json:"staff_name"`
	Slots     []calendarSlot `json:"slots"`
}

type calendarBooking struct {
	AppointmentID string `json:"appointment_id"`
	StaffID       string `json:"staff_id"`
	ServiceID     string `json:"service_id"`
	CustomerName  string `json:"customer_name"`
	Status        string `json:"status"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type calendarDay struct {
	Date     string            `json:"date"`
	Staff    []calendarStaff   `json:"staff"`
	Bookings []calendarBooking `json:"bookings"`
}

type calendarResponse struct {
	BusinessID string        `json:"business_id"`
	ServiceID  string        `json:"service_id"`
	Days       []calendarDay `json:"days"`
}

// Calendar is the admin view of open slots and booked appointments per business-local day,
// scoped to the business in the caller's token. Bookings of every service are listed.
func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing claims")
		return
	}
	req, from, ok := parseRange(w, r, claims.BusinessID)
	if !ok {
		return
	}
	ctx := r.Context()
	slots, err := h.lookahead(ctx, req, from)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	loc, err := h.engine.Location(ctx, req.BusinessID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	start, _ := schedule.DayBounds(from, loc)
	_, end := schedule.DayBounds(from.AddDays(req.Days-1), loc)
	bookings, err := h.bookings.ListBookings(ctx, req.BusinessID, start, end)
	if err != nil {
		h.logger.Error("list bookings failed", "request_id", httpx.RequestIDFromContext(ctx), "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "availability temporarily unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, calendarResponse{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		Days:       groupCalendar(slots, bookings, loc),
	})
}

func (h *AvailabilityHandler) lookahead(ctx context.Context, req rangeQuery, from civil.Date) ([]model.Slot, error) {
	return h.engine.GetAvailabilityRange(ctx, engine.RangeRequest{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		From:       from,
		Days:       req.Days,
	})
}

func parseRange(w http.ResponseWriter, r *http.Request, businessID string) (rangeQuery, civil.Date, bool) {
	q := r.URL.Query()
	req := rangeQuery{
		BusinessID: businessID,
		ServiceID:  strings.TrimSpace(q.Get("service_id")),
		StaffID:    strings.TrimSpace(q.Get("staff_id")),
		From:       strings.TrimSpace(q.Get("from")),
		Days:       7,
	}
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "days must be a number")
			return rangeQuery{}, civil.Date{}, false
		}
		req.Days = n
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return rangeQuery{}, civil.Date{}, false
	}
	from, err := civil.ParseDate(req.From)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid from date")
		return rangeQuery{}, civil.Date{}, false
	}
	return req, from, true
}

func slotItems(slots []model.Slot) []slotItem {
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StaffID:   s.StaffID,
			StaffName: s.StaffName,
			StartTime: s.StartAt.Format(time.RFC3339),
			EndTime:   s.EndAt.Format(time.RFC3339),
		})
	}
	return items
}

// groupCalendar groups slots and bookings by their business-local date, then slots by staff
// ordered by name. Days come out in date order.
func groupCalendar(slots []model.Slot, bookings []model.Booking, loc *time.Location) []calendarDay {
	days := []calendarDay{}
	dayIndex := map[civil.Date]int{}
	staffIndex := map[civil.Date]map[string]int{}
	dayOf := func(t time.Time) (civil.Date, int) {
		d := civil.DateOf(t.In(loc))
		di, ok := dayIndex[d]
		if !ok {
			di = len(days)
			dayIndex[d] = di
			staffIndex[d] = map[string]int{}
			days = append(days, calendarDay{Date: d.String(), Staff: []calendarStaff{}, Bookings: []calendarBooking{}})
		}
		return d, di
	}
	for _, s := range slots {
		d, di := dayOf(s.StartAt)
		si, ok := staffIndex[d][s.StaffID]
		if !ok {
			si = len(days[di].Staff)
			staffIndex[d][s.StaffID] = si
			days[di].Staff = append(days[di].Staff, calendarStaff{StaffID: s.StaffID, StaffName: s.StaffName})
		}
		days[di].Staff[si].Slots = append(days[di].Staff[si].Slots, calendarSlot{
			StartTime: s.StartAt.In(loc).Format(time.RFC3339),
			EndTime:   s.EndAt.In(loc).Format(time.RFC3339),
		})
	}
	for _, b := range bookings {
		_, di := dayOf(b.StartAt)
		days[di].Bookings = append(days[di].Bookings, calendarBooking{
			AppointmentID: b.ID,
			StaffID:       b.StaffID,
			ServiceID:     b.ServiceID,
			CustomerName:  b.CustomerName,
			Status:        string(b.Status),
			StartTime:     b.StartAt.In(loc).Format(time.RFC3339),
			EndTime:       b.EndAt.In(loc).Format(time.RFC3339),
		})
	}
	for _, d := range days {
		slices.SortStableFunc(d.Staff, func(a, b calendarStaff) int {
			if c := strings.Compare(a.StaffName, b.StaffName); c != 0 {
				return c
			}
			return strings.Compare(a.StaffID, b.StaffID)
		})
	}
	slices.SortFunc(days, func(a, b calendarDay) int { return strings.Compare(a.Date, b.Date) })
	return days
}
