package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

// BallotStore runs fn inside one transaction that holds the election's append
// lock. Token burns and ledger appends made through tx commit together when fn
// returns nil and are discarded otherwise.
type BallotStore interface {
	WithinElection(ctx context.Context, electionID uuid.UUID, fn func(ctx context.Context, tx BallotTx) error) error
}

type BallotTx interface {
	// Election is the locked election row, candidates included.
	Election() *domain.Election
	RedeemByVoter(ctx context.Context, voterID uuid.UUID, now time.Time) (*domain.EligibilityToken, error)
	RedeemBySecretHash(ctx context.Context, tokenHash string, now time.Time) (*domain.EligibilityToken, error)
	// Tail returns the vote_hash of the latest record, or domain.GenesisHash.
	Tail(ctx context.Context) (string, error)
	Append(ctx context.Context, record *domain.VoteRecord) error
}

type VoteRepository interface {
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]domain.VoteRecord, error)
	Tally(ctx context.Context, electionID uuid.UUID) ([]domain.CandidateTally, error)
	FindReceipt(ctx context.Context, electionID uuid.UUID, voteHash string) (*domain.ReceiptStatus, error)
}

type CastVoteInput struct {
	VoterID     uuid.UUID
	ElectionID  uuid.UUID
	CandidateID uuid.UUID
}

type SecretVoteInput struct {
	Secret      string
	ElectionID  uuid.UUID
	CandidateID uuid.UUID
}

type VotingService interface {
	CastVote(ctx context.Context, input CastVoteInput) (*domain.VoteReceipt, error)
	CastVoteWithSecret(ctx context.Context, input SecretVoteInput) (*domain.VoteReceipt, error)
	VerifyChain(ctx context.Context, electionID uuid.UUID) (*domain.ChainReport, error)
	GetReceipt(ctx context.Context, electionID uuid.UUID, voteHash string) (*domain.ReceiptStatus, error)
}

type TallyService interface {
	Tally(ctx context.Context, electionID uuid.UUID) (*domain.ElectionResult, error)
}

type AuditService interface {
	AuditAll(ctx context.Context) ([]domain.ChainReport, error)
}
