package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

const DefaultLockTimeout = 2 * time.Second

type ballotStore struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewBallotStore serializes appends per election with a row lock on the
// election, bounded by lockTimeout. Lock waits past the timeout surface as
// domain.ErrConcurrencyConflict.
func NewBallotStore(db *sql.DB, lockTimeout time.Duration) ports.BallotStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &ballotStore{db: db, lockTimeout: lockTimeout}
}

type ballotTx struct {
	tx       *sql.Tx
	election *domain.Election
}

func (s *ballotStore) WithinElection(ctx context.Context, electionID uuid.UUID, fn func(ctx context.Context, tx ports.BallotTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := setLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return err
	}

	election, err := getElection(ctx, tx, electionID, true)
	if err != nil {
		return err
	}

	if err := fn(ctx, &ballotTx{tx: tx, election: election}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(err, "failed to commit transaction")
	}
	return nil
}

func (b *ballotTx) Election() *domain.Election {
	return b.election
}

// RedeemByVoter flips used with a compare-and-set; a row that is already used
// or expired is left untouched and classified afterwards.
func (b *ballotTx) RedeemByVoter(ctx context.Context, voterID uuid.UUID, now time.Time) (*domain.EligibilityToken, error) {
	query := `
		UPDATE eligibility_tokens SET used = TRUE, used_at = $3
		WHERE voter_id = $1 AND election_id = $2 AND used = FALSE AND expires_at > $3
		RETURNING ` + tokenColumns
	token, err := scanToken(b.tx.QueryRowContext(ctx, query, voterID, b.election.ID, now))
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapErr(err, "failed to redeem voting token")
	}

	lookup := `SELECT ` + tokenColumns + ` FROM eligibility_tokens WHERE voter_id = $1 AND election_id = $2`
	return b.classify(ctx, now, lookup, voterID, b.election.ID)
}

func (b *ballotTx) RedeemBySecretHash(ctx context.Context, tokenHash string, now time.Time) (*domain.EligibilityToken, error) {
	query := `
		UPDATE eligibility_tokens SET used = TRUE, used_at = $3
		WHERE token_hash = $1 AND election_id = $2 AND used = FALSE AND expires_at > $3
		RETURNING ` + tokenColumns
	token, err := scanToken(b.tx.QueryRowContext(ctx, query, tokenHash, b.election.ID, now))
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapErr(err, "failed to redeem voting token")
	}

	lookup := `SELECT ` + tokenColumns + ` FROM eligibility_tokens WHERE token_hash = $1 AND election_id = $2`
	return b.classify(ctx, now, lookup, tokenHash, b.election.ID)
}

// classify explains why the compare-and-set matched nothing.
func (b *ballotTx) classify(ctx context.Context, now time.Time, query string, args ...any) (*domain.EligibilityToken, error) {
	token, err := scanToken(b.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, wrapErr(err, "failed to get voting token")
	}
	if err := token.Redeemable(now); err != nil {
		return nil, err
	}
	// The row looked redeemable after the update missed it: another writer won.
	return nil, domain.ErrTokenAlreadyUsed
}

func (b *ballotTx) Tail(ctx context.Context) (string, error) {
	query := `
		SELECT vote_hash FROM vote_records
		WHERE election_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`
	var hash string
	err := b.tx.QueryRowContext(ctx, query, b.election.ID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.GenesisHash, nil
		}
		return "", wrapErr(err, "failed to read ledger tail")
	}
	return hash, nil
}

func (b *ballotTx) Append(ctx context.Context, record *domain.VoteRecord) error {
	if record.ElectionID != b.election.ID {
		return fmt.Errorf("%w: record for election %s appended under election %s", domain.ErrInvalidInput, record.ElectionID, b.election.ID)
	}

	query := `
		INSERT INTO vote_records (id, vote_hash, prev_hash, election_id, candidate_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	err := b.tx.QueryRowContext(ctx, query,
		record.ID, record.VoteHash, record.PrevHash, record.ElectionID, record.CandidateID, record.CreatedAt,
	).Scan(&record.Seq)
	if err != nil {
		return wrapErr(err, "failed to append vote")
	}
	return nil
}
