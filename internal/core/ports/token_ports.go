package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

type TokenRepository interface {
	// Create stores token unless (voter, election) already has one, in which
	// case it returns false and leaves the store untouched.
	Create(ctx context.Context, token *domain.EligibilityToken) (bool, error)
	GetByVoter(ctx context.Context, voterID, electionID uuid.UUID) (*domain.EligibilityToken, error)
}

type TokenService interface {
	IssueToken(ctx context.Context, voterID, electionID uuid.UUID) (*domain.IssueResult, error)
	// IssueTokens returns one result per entry of voterIDs, in order. A voter
	// listed twice gets a token once; the repeat reports AlreadyIssued.
	IssueTokens(ctx context.Context, electionID uuid.UUID, voterIDs []uuid.UUID) ([]domain.IssueResult, error)
}
