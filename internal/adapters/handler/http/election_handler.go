package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type ElectionHandler struct {
	service   ports.ElectionService
	lifecycle ports.LifecycleService
}

func NewElectionHandler(service ports.ElectionService, lifecycle ports.LifecycleService) *ElectionHandler {
	return &ElectionHandler{
		service:   service,
		lifecycle: lifecycle,
	}
}

type createElectionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Candidates  []struct {
		Name string `json:"name"`
		Bio  string `json:"bio"`
	} `json:"candidates"`
}

// CreateElection godoc
// @Summary      Creates an election
// @Description  The authenticated user becomes the owner. Candidates keep the order given.
// @Tags         elections
// @Accept       json
// @Success      201
// @Failure      400
// @Router       /api/elections [post]
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	var req createElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := ports.CreateElectionInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		OwnerID:     userID,
	}
	for _, c := range req.Candidates {
		input.Candidates = append(input.Candidates, ports.CandidateInput{Name: c.Name, Bio: c.Bio})
	}

	election, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, election)
}

func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, ok := electionIDParam(w, r)
	if !ok {
		return
	}

	election, err := h.service.GetElection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, election)
}

// StartElection godoc
// @Summary      Opens an election for voting
// @Description  Idempotent. Only the owner may call it.
// @Tags         elections
// @Success      200
// @Failure      403
// @Router       /api/elections/{id}/start [post]
func (h *ElectionHandler) StartElection(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.StartElection)
}

// EndElection godoc
// @Summary      Closes an election
// @Description  Idempotent. Only the owner may call it.
// @Tags         elections
// @Success      200
// @Failure      403
// @Router       /api/elections/{id}/end [post]
func (h *ElectionHandler) EndElection(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.EndElection)
}

func (h *ElectionHandler) transition(w http.ResponseWriter, r *http.Request, trigger func(context.Context, uuid.UUID) (*domain.Election, error)) {
	id, ok := electionIDParam(w, r)
	if !ok {
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	election, err := h.service.GetElection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if election.OwnerID != userID {
		http.Error(w, "only the election owner can change its status", http.StatusForbidden)
		return
	}

	election, err = trigger(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, election)
}
