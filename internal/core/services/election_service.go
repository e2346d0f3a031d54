package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type electionService struct {
	repo  ports.ElectionRepository
	clock ports.Clock
	log   logrus.FieldLogger
}

func NewElectionService(repo ports.ElectionRepository, clock ports.Clock, opts Options) ports.ElectionService {
	opts = opts.withDefaults()
	return &electionService{
		repo:  repo,
		clock: clock,
		log:   opts.Logger,
	}
}

func (s *electionService) Create(ctx context.Context, input ports.CreateElectionInput) (*domain.Election, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if input.StartTime != nil && input.EndTime != nil && !input.EndTime.After(*input.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidInput)
	}

	electionID := uuid.New()
	now := s.clock.Now()

	election := &domain.Election{
		ID:          electionID,
		Title:       title,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Status:      domain.StatusPending,
		OwnerID:     input.OwnerID,
		CreatedAt:   now,
	}

	for _, c := range input.Candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		election.Candidates = append(election.Candidates, domain.Candidate{
			ID:         uuid.New(),
			ElectionID: electionID,
			Name:       name,
			Bio:        c.Bio,
			Position:   len(election.Candidates),
			CreatedAt:  now,
		})
	}

	if len(election.Candidates) == 0 {
		return nil, fmt.Errorf("%w: at least one candidate is required", domain.ErrInvalidInput)
	}

	if err := s.repo.Create(ctx, election); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"election_id": election.ID,
		"candidates":  len(election.Candidates),
	}).Info("election created")

	return election, nil
}

func (s *electionService) GetElection(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	return s.repo.GetByID(ctx, id)
}
