package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

var _ ports.ElectionRepository = (*ElectionRepository)(nil)

type ElectionRepository struct {
	s *Store
}

func (r *ElectionRepository) Create(ctx context.Context, election *domain.Election) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.elections[election.ID]; exists {
		return fmt.Errorf("%w: election %s already exists", domain.ErrPersistence, election.ID)
	}
	if election.Status == "" {
		election.Status = domain.StatusPending
	}
	r.s.elections[election.ID] = copyElection(election)
	r.s.order = append(r.s.order, election.ID)
	return nil
}

func (r *ElectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.elections[id]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}
	return copyElection(e), nil
}

func (r *ElectionRepository) Transition(ctx context.Context, id uuid.UUID, target domain.ElectionStatus) (*domain.Election, bool, error) {
	release, err := r.s.lockElection(ctx, id)
	if err != nil {
		return nil, false, err
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.elections[id]
	if !ok {
		return nil, false, domain.ErrElectionNotFound
	}
	next, changed, err := domain.NextStatus(e.Status, target)
	if err != nil {
		return nil, false, err
	}
	e.Status = next
	return copyElection(e), changed, nil
}

func (r *ElectionRepository) Halt(ctx context.Context, id uuid.UUID, reason string) error {
	release, err := r.s.lockElection(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.elections[id]
	if !ok {
		return domain.ErrElectionNotFound
	}
	e.Halted = true
	return nil
}

func (r *ElectionRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]uuid.UUID(nil), r.s.order...), nil
}

func (r *ElectionRepository) ListStartDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return r.list(func(e *domain.Election) bool {
		return e.Status == domain.StatusPending && e.StartTime != nil && !e.StartTime.After(now)
	}), nil
}

func (r *ElectionRepository) ListEndDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return r.list(func(e *domain.Election) bool {
		return e.Status != domain.StatusCompleted && e.EndTime != nil && !e.EndTime.After(now)
	}), nil
}

func (r *ElectionRepository) list(match func(*domain.Election) bool) []uuid.UUID {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids []uuid.UUID
	for _, id := range r.s.order {
		if match(r.s.elections[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}
