package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

const tokenColumns = `id, token_hash, voter_id, election_id, used, expires_at, created_at`

type tokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) ports.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *domain.EligibilityToken) (bool, error) {
	query := `
		INSERT INTO eligibility_tokens (id, token_hash, voter_id, election_id, used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		ON CONFLICT (voter_id, election_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, token.ID, token.TokenHash, token.VoterID, token.ElectionID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrElectionNotFound
		}
		return false, wrapErr(err, "failed to store voting token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "failed to store voting token")
	}
	return n == 1, nil
}

func (r *tokenRepository) GetByVoter(ctx context.Context, voterID, electionID uuid.UUID) (*domain.EligibilityToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM eligibility_tokens WHERE voter_id = $1 AND election_id = $2`
	token, err := scanToken(r.db.QueryRowContext(ctx, query, voterID, electionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, wrapErr(err, "failed to get voting token")
	}
	return token, nil
}

func scanToken(row rowScanner) (*domain.EligibilityToken, error) {
	token := &domain.EligibilityToken{}
	err := row.Scan(
		&token.ID,
		&token.TokenHash,
		&token.VoterID,
		&token.ElectionID,
		&token.Used,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}
