package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeError maps each domain error kind to its HTTP representation.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrCandidateNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrElectionNotFound), errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrReceiptNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTokenAlreadyUsed), errors.Is(err, domain.ErrElectionNotActive), errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTokenExpired):
		status = http.StatusGone
	case errors.Is(err, domain.ErrChainIntegrityViolation):
		status = http.StatusLocked
	case errors.Is(err, domain.ErrConcurrencyConflict):
		w.Header().Set("Retry-After", "1")
		status = http.StatusServiceUnavailable
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	http.Error(w, msg, status)
}

func electionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
