package engine

import (
	"errors"

	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

var (
	// ErrNotFound is the same sentinel stores return, so errors.Is matches either way.
	ErrNotFound         = model.ErrNotFound
	ErrConfiguration    = errors.New("configuration error")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	default:
		return "store_unavailable"
	}
}
