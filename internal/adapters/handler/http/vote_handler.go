package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type VoteHandler struct {
	voting ports.VotingService
	tally  ports.TallyService
}

func NewVoteHandler(voting ports.VotingService, tally ports.TallyService) *VoteHandler {
	return &VoteHandler{
		voting: voting,
		tally:  tally,
	}
}

type castVoteRequest struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Token       string    `json:"token,omitempty"`
}

// CastVote godoc
// @Summary      Casts the caller's vote
// @Description  When token is present the ballot is redeemed by the token alone; otherwise by the caller's identity.
// @Tags         votes
// @Accept       json
// @Success      201
// @Failure      404
// @Failure      409
// @Failure      410
// @Failure      503
// @Router       /api/elections/{id}/votes [post]
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	electionID, ok := electionIDParam(w, r)
	if !ok {
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		receipt *domain.VoteReceipt
		err     error
	)
	if req.Token != "" {
		receipt, err = h.voting.CastVoteWithSecret(r.Context(), ports.SecretVoteInput{
			Secret:      req.Token,
			ElectionID:  electionID,
			CandidateID: req.CandidateID,
		})
	} else {
		userID, ok := userIDFrom(r)
		if !ok {
			http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
			return
		}
		receipt, err = h.voting.CastVote(r.Context(), ports.CastVoteInput{
			VoterID:     userID,
			ElectionID:  electionID,
			CandidateID: req.CandidateID,
		})
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

func (h *VoteHandler) Results(w http.ResponseWriter, r *http.Request) {
	electionID, ok := electionIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.tally.Tally(r.Context(), electionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *VoteHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	electionID, ok := electionIDParam(w, r)
	if !ok {
		return
	}

	report, err := h.voting.VerifyChain(r.Context(), electionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *VoteHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	electionID, ok := electionIDParam(w, r)
	if !ok {
		return
	}

	receipt, err := h.voting.GetReceipt(r.Context(), electionID, chi.URLParam(r, "hash"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}
