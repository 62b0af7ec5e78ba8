package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalhunt/market/internal/market"
	"github.com/signalhunt/market/pkg/repository"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the engine/store error taxonomy onto HTTP statuses and a
// stable machine-readable code so clients can tell "fix your input"
// (invalid_amount, invalid_transition) from "the world changed under you"
// (condition_failed, listing_unavailable) from "you're not allowed"
// (unauthorized).
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, market.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, repository.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, market.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, market.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, repository.ErrConditionFailed):
		status, code = http.StatusConflict, "condition_failed"
	case errors.Is(err, market.ErrListingUnavailable):
		status, code = http.StatusConflict, "listing_unavailable"
	case errors.Is(err, market.ErrListingExists):
		status, code = http.StatusConflict, "listing_exists"
	case errors.Is(err, repository.ErrConstraintViolation):
		status, code = http.StatusConflict, "constraint_violation"
	default:
		logger.Error("internal error", "err", err)
		status, code = http.StatusInternalServerError, "internal"
	}

	writeJSON(w, errorResponse{Error: err.Error(), Code: code}, status)
}
