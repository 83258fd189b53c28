package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/slotwise/slotwise/libs/httpx"
	"github.com/slotwise/slotwise/services/availability-service/internal/engine"
	"github.com/slotwise/slotwise/services/availability-service/internal/holds"
	"github.com/slotwise/slotwise/services/availability-service/internal/metrics"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/slotwise/slotwise/services/availability-service/internal/outbox"
	"github.com/slotwise/slotwise/services/availability-service/internal/storage"
)

type HoldStore interface {
	Create(ctx context.Context, h model.Hold) (model.Hold, error)
	Release(ctx context.Context, businessID, staffID, holdID string) error
}

type BookingStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockIdempotencyKey(ctx context.Context, tx pgx.Tx, businessID, key string) (storage.IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, tx pgx.Tx, businessID, key, bookingID string, statusCode int, response []byte) error
	Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error)
}

type OutboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type BookingHandler struct {
	engine Availability
	holds  HoldStore // nil when Redis is not configured
	repo   BookingStore
	outbox OutboxWriter
	logger *slog.Logger
}

func NewBookingHandler(e Availability, holdStore HoldStore, repo BookingStore, outboxRepo OutboxWriter, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: e, holds: holdStore, repo: repo, outbox: outboxRepo, logger: logger}
}

const rfc3339Layout = "2006-01-02T15:04:05Z07:00"

type createHoldRequest struct {
	BusinessID string `json:"business_id" validate:"required"`
	ServiceID  string `json:"service_id" validate:"required"`
	StaffID    string `json:"staff_id" validate:"required,ne=any"`
	StartTime  string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

type createHoldResponse struct {
	HoldID    string `json:"hold_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	ExpiresAt string `json:"expires_at"`
}

// CreateHold reserves an offered slot for a short time while the customer checks out.
func (h *BookingHandler) CreateHold(w http.ResponseWriter, r *http.Request) {
	if h.holds == nil {
		httpx.WriteError(w, http.StatusNotImplemented, "holds are disabled")
		return
	}
	var req createHoldRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, err := time.Parse(rfc3339Layout, req.StartTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid start_time")
		return
	}

	ctx := r.Context()
	ok, err := h.engine.IsOffered(ctx, engine.OfferRequest{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		StartAt:    start,
	})
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	if !ok {
		metrics.RecordHold("not_offered")
		httpx.WriteError(w, http.StatusConflict, "slot is not available")
		return
	}
	end, err := h.engine.SlotEnd(ctx, req.BusinessID, req.ServiceID, start)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	hold, err := h.holds.Create(ctx, model.Hold{
		BusinessID: req.BusinessID,
		StaffID:    req.StaffID,
		ServiceID:  req.ServiceID,
		StartAt:    start,
		EndAt:      end,
	})
	if err != nil {
		if errors.Is(err, holds.ErrConflict) {
			httpx.WriteError(w, http.StatusConflict, "slot is already held")
			return
		}
		h.logger.Error("create hold failed", "request_id", httpx.RequestIDFromContext(ctx), "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "hold store unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createHoldResponse{
		HoldID:    hold.ID,
		StartTime: start.Format(time.RFC3339),
		EndTime:   end.Format(time.RFC3339),
		ExpiresAt: hold.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *BookingHandler) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	if h.holds == nil {
		httpx.WriteError(w, http.StatusNotImplemented, "holds are disabled")
		return
	}
	holdID := strings.TrimSpace(r.PathValue("hold_id"))
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	if holdID == "" || businessID == "" || staffID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "hold_id, business_id and staff_id are required")
		return
	}
	if err := h.holds.Release(r.Context(), businessID, staffID, holdID); err != nil {
		if errors.Is(err, holds.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "hold not found")
			return
		}
		h.logger.Error("release hold failed", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "hold store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createBookingRequest struct {
	BusinessID    string `json:"business_id" validate:"required"`
	ServiceID     string `json:"service_id" validate:"required"`
	StaffID       string `json:"staff_id" validate:"required,ne=any"`
	StartTime     string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=32"`
	HoldID        string `json:"hold_id"`
}

type createBookingResponse struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// Book places a booking on a currently offered slot. The bookings exclusion constraint
// decides races between concurrent requests.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, err := time.Parse(rfc3339Layout, req.StartTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid start_time")
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "db unavailable")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, req.BusinessID, idempotencyKey)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "failed to lock idempotency key")
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	ok, err := h.engine.IsOffered(ctx, engine.OfferRequest{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		StartAt:    start,
		HoldID:     req.HoldID,
	})
	if err != nil {
		// Not finalized: the client may retry with the same key.
		writeEngineError(w, r, h.logger, err)
		return
	}
	if !ok {
		h.finishWithError(ctx, w, tx, req.BusinessID, idempotencyKey, http.StatusUnprocessableEntity, "requested time is not available")
		return
	}
	end, err := h.engine.SlotEnd(ctx, req.BusinessID, req.ServiceID, start)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	booking := model.Booking{
		BusinessID:    req.BusinessID,
		ServiceID:     req.ServiceID,
		StaffID:       req.StaffID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		StartAt:       start,
		EndAt:         end,
		Status:        model.StatusConfirmed,
	}
	booking.ID, err = h.repo.Create(ctx, tx, &booking)
	if err != nil {
		if storage.IsConflict(err) {
			metrics.RecordBookingConflict()
			httpx.WriteError(w, http.StatusConflict, "time slot already booked")
			return
		}
		h.logger.Error("create booking failed", "request_id", httpx.RequestIDFromContext(ctx), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	evt, err := outbox.BookedEvent(booking)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to build event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, evt); err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to write outbox event")
		return
	}

	body, err := json.Marshal(createBookingResponse{
		AppointmentID: booking.ID,
		StartTime:     start.Format(time.RFC3339),
		EndTime:       end.Format(time.RFC3339),
	})
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to build response")
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, req.BusinessID, idempotencyKey, booking.ID, http.StatusCreated, body); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "failed to finalize idempotency key")
			return
		}
	}
	if err := tx.Commit(ctx); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to commit")
		return
	}

	if req.HoldID != "" && h.holds != nil {
		if err := h.holds.Release(ctx, req.BusinessID, req.StaffID, req.HoldID); err != nil && !errors.Is(err, holds.ErrNotFound) {
			h.logger.Warn("release hold after booking failed", "hold_id", req.HoldID, "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

// finishWithError answers with status and, when an idempotency key is set, stores the answer for replays.
func (h *BookingHandler) finishWithError(ctx context.Context, w http.ResponseWriter, tx pgx.Tx, businessID, key string, status int, msg string) {
	if key != "" {
		body, _ := json.Marshal(map[string]string{"error": msg})
		if err := h.repo.FinalizeIdempotency(ctx, tx, businessID, key, "", status, body); err != nil {
			h.logger.Error("failed to finalize idempotency (error)", "err", err)
		} else if err := tx.Commit(ctx); err != nil {
			h.logger.Error("failed to commit idempotency (error)", "err", err)
		}
	}
	httpx.WriteError(w, status, msg)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}
