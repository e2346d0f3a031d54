package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

var _ ports.TokenRepository = (*TokenRepository)(nil)

type TokenRepository struct {
	s *Store
}

func (r *TokenRepository) Create(ctx context.Context, token *domain.EligibilityToken) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.elections[token.ElectionID]; !ok {
		return false, domain.ErrElectionNotFound
	}
	key := tokenKey{voterID: token.VoterID, electionID: token.ElectionID}
	if _, exists := r.s.tokens[key]; exists {
		return false, nil
	}
	if _, clash := r.s.tokenHashes[token.TokenHash]; clash {
		return false, fmt.Errorf("%w: duplicate token hash", domain.ErrPersistence)
	}

	stored := *token
	stored.Used = false
	r.s.tokens[key] = &stored
	r.s.tokenHashes[token.TokenHash] = key
	return true, nil
}

func (r *TokenRepository) GetByVoter(ctx context.Context, voterID, electionID uuid.UUID) (*domain.EligibilityToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[tokenKey{voterID: voterID, electionID: electionID}]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	c := *t
	return &c, nil
}
