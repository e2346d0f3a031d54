package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

var _ ports.VoteRepository = (*VoteRepository)(nil)

type VoteRepository struct {
	s *Store
}

func (r *VoteRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]domain.VoteRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.VoteRecord(nil), r.s.votes[electionID]...), nil
}

func (r *VoteRepository) Tally(ctx context.Context, electionID uuid.UUID) ([]domain.CandidateTally, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.elections[electionID]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}

	counts := make(map[uuid.UUID]int64, len(e.Candidates))
	for _, v := range r.s.votes[electionID] {
		counts[v.CandidateID]++
	}

	tallies := make([]domain.CandidateTally, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		tallies = append(tallies, domain.CandidateTally{
			CandidateID: c.ID,
			Name:        c.Name,
			Count:       counts[c.ID],
			Position:    c.Position,
		})
	}
	return tallies, nil
}

func (r *VoteRepository) FindReceipt(ctx context.Context, electionID uuid.UUID, voteHash string) (*domain.ReceiptStatus, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for i, v := range r.s.votes[electionID] {
		if v.VoteHash == voteHash {
			return &domain.ReceiptStatus{VoteHash: v.VoteHash, Index: i, Timestamp: v.CreatedAt}, nil
		}
	}
	return nil, domain.ErrReceiptNotFound
}
