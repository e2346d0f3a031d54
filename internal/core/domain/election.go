package domain

import (
	"time"

	"github.com/google/uuid"
)

type ElectionStatus string

const (
	StatusPending   ElectionStatus = "pending"
	StatusActive    ElectionStatus = "active"
	StatusCompleted ElectionStatus = "completed"
)

func (s ElectionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted:
		return true
	}
	return false
}

type Election struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	Status      ElectionStatus `json:"status"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	Halted      bool           `json:"halted"`
	CreatedAt   time.Time      `json:"created_at"`
	Candidates  []Candidate    `json:"candidates,omitempty"`
}

// AcceptsVotes is the single gate consulted by the casting path.
func (e *Election) AcceptsVotes() error {
	if e.Halted {
		return ErrChainIntegrityViolation
	}
	if e.Status != StatusActive {
		return ErrElectionNotActive
	}
	return nil
}

func (e *Election) HasCandidate(id uuid.UUID) bool {
	for _, c := range e.Candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

type Candidate struct {
	ID         uuid.UUID `json:"id"`
	ElectionID uuid.UUID `json:"election_id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio,omitempty"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}
