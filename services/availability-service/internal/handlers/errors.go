package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/slotwise/slotwise/libs/httpx"
	"github.com/slotwise/slotwise/services/availability-service/internal/engine"
)

// writeEngineError maps engine sentinels to HTTP statuses.
func writeEngineError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrConfiguration):
		logger.Warn("business misconfigured", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusUnprocessableEntity, "business availability is misconfigured")
	default:
		logger.Error("availability unavailable", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "availability temporarily unavailable")
	}
}
