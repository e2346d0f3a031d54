package http

import (
	"net/http"

	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type TokenHandler struct {
	service ports.TokenService
}

func NewTokenHandler(service ports.TokenService) *TokenHandler {
	return &TokenHandler{
		service: service,
	}
}

// IssueToken godoc
// @Summary      Issues the caller's voting token for an election
// @Description  The raw token is returned once. A second call reports already_issued without a token.
// @Tags         tokens
// @Success      201
// @Success      200
// @Failure      404
// @Router       /api/elections/{id}/tokens [post]
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	electionID, ok := electionIDParam(w, r)
	if !ok {
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	result, err := h.service.IssueToken(r.Context(), userID, electionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if result.AlreadyIssued {
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
