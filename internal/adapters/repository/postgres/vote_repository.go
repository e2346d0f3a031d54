package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]domain.VoteRecord, error) {
	query := `
		SELECT id, seq, vote_hash, prev_hash, election_id, candidate_id, created_at
		FROM vote_records
		WHERE election_id = $1
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, wrapErr(err, "failed to list votes")
	}
	defer rows.Close()

	var records []domain.VoteRecord
	for rows.Next() {
		var v domain.VoteRecord
		if err := rows.Scan(&v.ID, &v.Seq, &v.VoteHash, &v.PrevHash, &v.ElectionID, &v.CandidateID, &v.CreatedAt); err != nil {
			return nil, wrapErr(err, "failed to scan vote")
		}
		v.CreatedAt = v.CreatedAt.UTC()
		records = append(records, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return records, nil
}

// Tally counts on read; candidates without votes come back with zero.
func (r *voteRepository) Tally(ctx context.Context, electionID uuid.UUID) ([]domain.CandidateTally, error) {
	query := `
		SELECT c.id, c.name, c.position, COUNT(v.seq)
		FROM candidates c
		LEFT JOIN vote_records v ON v.candidate_id = c.id AND v.election_id = c.election_id
		WHERE c.election_id = $1
		GROUP BY c.id, c.name, c.position
		ORDER BY COUNT(v.seq) DESC, c.position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, wrapErr(err, "failed to tally votes")
	}
	defer rows.Close()

	var tallies []domain.CandidateTally
	for rows.Next() {
		var t domain.CandidateTally
		if err := rows.Scan(&t.CandidateID, &t.Name, &t.Position, &t.Count); err != nil {
			return nil, wrapErr(err, "failed to scan tally")
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally: %w", err)
	}
	return tallies, nil
}

func (r *voteRepository) FindReceipt(ctx context.Context, electionID uuid.UUID, voteHash string) (*domain.ReceiptStatus, error) {
	query := `
		SELECT v.vote_hash, v.created_at,
			(SELECT COUNT(*) FROM vote_records p WHERE p.election_id = v.election_id AND p.seq < v.seq)
		FROM vote_records v
		WHERE v.election_id = $1 AND v.vote_hash = $2
	`
	var receipt domain.ReceiptStatus
	err := r.db.QueryRowContext(ctx, query, electionID, voteHash).Scan(&receipt.VoteHash, &receipt.Timestamp, &receipt.Index)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, wrapErr(err, "failed to find receipt")
	}
	return &receipt, nil
}
