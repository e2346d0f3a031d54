package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type tokenService struct {
	elections ports.ElectionRepository
	tokens    ports.TokenRepository
	clock     ports.Clock
	rand      io.Reader
	ttl       time.Duration
	log       logrus.FieldLogger
}

func NewTokenService(elections ports.ElectionRepository, tokens ports.TokenRepository, clock ports.Clock, opts Options) ports.TokenService {
	opts = opts.withDefaults()
	return &tokenService{
		elections: elections,
		tokens:    tokens,
		clock:     clock,
		ttl:       opts.TokenTTL,
		log:       opts.Logger,
	}
}

func (s *tokenService) IssueToken(ctx context.Context, voterID, electionID uuid.UUID) (*domain.IssueResult, error) {
	election, err := s.issuableElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, voterID, election)
}

// IssueTokens hands a token to every listed voter and returns one result per
// entry, in order. Voters that already hold one, including repeats within
// voterIDs, come back with AlreadyIssued set.
func (s *tokenService) IssueTokens(ctx context.Context, electionID uuid.UUID, voterIDs []uuid.UUID) ([]domain.IssueResult, error) {
	election, err := s.issuableElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(voterIDs))
	results := make([]domain.IssueResult, 0, len(voterIDs))
	for _, voterID := range voterIDs {
		if _, dup := seen[voterID]; dup {
			results = append(results, domain.IssueResult{VoterID: voterID, ElectionID: election.ID, AlreadyIssued: true})
			continue
		}
		seen[voterID] = struct{}{}

		res, err := s.issue(ctx, voterID, election)
		if err != nil {
			return results, fmt.Errorf("failed to issue token for voter %s: %w", voterID, err)
		}
		results = append(results, *res)
	}

	s.log.WithFields(logrus.Fields{
		"election_id": electionID,
		"voters":      len(seen),
	}).Info("bulk token issuance finished")

	return results, nil
}

func (s *tokenService) issuableElection(ctx context.Context, electionID uuid.UUID) (*domain.Election, error) {
	election, err := s.elections.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if election.Status == domain.StatusCompleted {
		return nil, domain.ErrElectionNotActive
	}
	// Past its end instant the election is closed even if the scheduler has not
	// marked it yet.
	if election.EndTime != nil && !election.EndTime.After(s.clock.Now()) {
		return nil, domain.ErrElectionNotActive
	}
	return election, nil
}

func (s *tokenService) issue(ctx context.Context, voterID uuid.UUID, election *domain.Election) (*domain.IssueResult, error) {
	secret, err := domain.NewSecret(s.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate voting token: %w", err)
	}

	now := s.clock.Now()
	token := &domain.EligibilityToken{
		ID:         uuid.New(),
		TokenHash:  domain.HashSecret(secret),
		VoterID:    voterID,
		ElectionID: election.ID,
		ExpiresAt:  s.expiresAt(election, now),
		CreatedAt:  now,
	}

	created, err := s.tokens.Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to store voting token: %w", err)
	}
	if !created {
		return &domain.IssueResult{
			VoterID:       voterID,
			ElectionID:    election.ID,
			AlreadyIssued: true,
		}, nil
	}

	return &domain.IssueResult{
		VoterID:    voterID,
		ElectionID: election.ID,
		Secret:     secret,
		ExpiresAt:  token.ExpiresAt,
	}, nil
}

// Tokens live until the election closes, or for the configured TTL when the
// election has no scheduled end.
func (s *tokenService) expiresAt(election *domain.Election, now time.Time) time.Time {
	if election.EndTime != nil {
		return *election.EndTime
	}
	return now.Add(s.ttl)
}
