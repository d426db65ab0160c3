package httpx

import (
	"errors"
	"net/http"

	"github.com/stockbar/stockbar/internal/shared"
)

// RespondError writes the problem response for the well-known domain errors
// and reports whether err was one of them. Callers keep their own handling
// for domain-specific errors and the logged fallback.
func RespondError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, shared.ErrValidationFailed):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate), errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrProtected), errors.Is(err, shared.ErrInUse):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		return false
	}
	return true
}
