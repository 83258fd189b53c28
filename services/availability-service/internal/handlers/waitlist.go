package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotwise/slotwise/libs/httpx"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/slotwise/slotwise/services/availability-service/internal/storage"
)

type WaitlistStore interface {
	Add(ctx context.Context, e *model.WaitlistEntry) error
}

type WaitlistHandler struct {
	store  WaitlistStore
	logger *slog.Logger
	now    func() time.Time
}

func NewWaitlistHandler(store WaitlistStore, logger *slog.Logger) *WaitlistHandler {
	return &WaitlistHandler{store: store, logger: logger, now: time.Now}
}

type joinWaitlistRequest struct {
	BusinessID     string `json:"business_id" validate:"required"`
	ServiceID      string `json:"service_id" validate:"required"`
	StaffID        string `json:"staff_id"`
	CustomerName   string `json:"customer_name" validate:"required,max=200"`
	CustomerEmail  string `json:"customer_email" validate:"required,email"`
	CustomerPhone  string `json:"customer_phone" validate:"omitempty,max=32"`
	PreferredStart string `json:"preferred_start" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	PreferredEnd   string `json:"preferred_end" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Priority       int    `json:"priority" validate:"gte=0,lte=100"`
}

type joinWaitlistResponse struct {
	WaitlistID string `json:"waitlist_id"`
	Status     string `json:"status"`
	ExpiresAt  string `json:"expires_at"`
}

// Join puts a customer on the waitlist of a service for WaitlistTTL.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinWaitlistRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	entry := model.WaitlistEntry{
		BusinessID:    req.BusinessID,
		ServiceID:     req.ServiceID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Priority:      req.Priority,
		ExpiresAt:     h.now().UTC().Add(model.WaitlistTTL),
	}
	if staff := strings.TrimSpace(req.StaffID); staff != "any" {
		entry.StaffID = staff
	}
	var err error
	if entry.PreferredStartAt, err = optionalTime(req.PreferredStart); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid preferred_start")
		return
	}
	if entry.PreferredEndAt, err = optionalTime(req.PreferredEnd); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid preferred_end")
		return
	}
	if entry.PreferredStartAt != nil && entry.PreferredEndAt != nil && !entry.PreferredStartAt.Before(*entry.PreferredEndAt) {
		httpx.WriteError(w, http.StatusBadRequest, "preferred_start must be before preferred_end")
		return
	}

	if err := h.store.Add(r.Context(), &entry); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "service or staff not found")
		case storage.IsUniqueViolation(err):
			httpx.WriteError(w, http.StatusConflict, "already on the waitlist")
		default:
			h.logger.Error("waitlist insert failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
			httpx.WriteError(w, http.StatusServiceUnavailable, "db unavailable")
		}
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, joinWaitlistResponse{
		WaitlistID: entry.ID,
		Status:     entry.Status,
		ExpiresAt:  entry.ExpiresAt.Format(time.RFC3339),
	})
}

func optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(rfc3339Layout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
