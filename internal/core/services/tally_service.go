package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type tallyService struct {
	elections ports.ElectionRepository
	votes     ports.VoteRepository
}

func NewTallyService(elections ports.ElectionRepository, votes ports.VoteRepository) ports.TallyService {
	return &tallyService{
		elections: elections,
		votes:     votes,
	}
}

func (s *tallyService) Tally(ctx context.Context, electionID uuid.UUID) (*domain.ElectionResult, error) {
	election, err := s.elections.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}

	tallies, err := s.votes.Tally(ctx, electionID)
	if err != nil {
		return nil, err
	}
	domain.SortTally(tallies)

	result := &domain.ElectionResult{
		ElectionID: election.ID,
		Title:      election.Title,
		Status:     election.Status,
		Results:    tallies,
	}
	for _, t := range tallies {
		result.TotalVotes += t.Count
	}
	return result, nil
}
