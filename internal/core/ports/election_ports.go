package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

type ElectionRepository interface {
	Create(ctx context.Context, election *domain.Election) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	// Transition moves the election to target if its current status allows it.
	// changed is false when the election already was at (or past) target.
	Transition(ctx context.Context, id uuid.UUID, target domain.ElectionStatus) (election *domain.Election, changed bool, err error)
	Halt(ctx context.Context, id uuid.UUID, reason string) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	ListStartDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	ListEndDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type CreateElectionInput struct {
	Title       string
	Description string
	StartTime   *time.Time
	EndTime     *time.Time
	OwnerID     uuid.UUID
	Candidates  []CandidateInput
}

type CandidateInput struct {
	Name string
	Bio  string
}

type ElectionService interface {
	Create(ctx context.Context, input CreateElectionInput) (*domain.Election, error)
	GetElection(ctx context.Context, id uuid.UUID) (*domain.Election, error)
}

// LifecycleService is called by the scheduler and by administrators. Both
// operations are idempotent.
type LifecycleService interface {
	StartElection(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	EndElection(ctx context.Context, id uuid.UUID) (*domain.Election, error)
}

type SchedulerService interface {
	RunDue(ctx context.Context) error
}
