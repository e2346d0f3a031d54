package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

const electionColumns = `id, title, description, start_time, end_time, status, owner_id, halted_at IS NOT NULL, created_at`

type electionRepository struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewElectionRepository bounds status changes waiting behind an in-flight cast
// by lockTimeout, like the ballot store.
func NewElectionRepository(db *sql.DB, lockTimeout time.Duration) ports.ElectionRepository {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &electionRepository{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

func (r *electionRepository) Create(ctx context.Context, election *domain.Election) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	queryElection := `
		INSERT INTO elections (id, title, description, start_time, end_time, status, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, queryElection,
		election.ID, election.Title, election.Description, election.StartTime, election.EndTime,
		election.Status, election.OwnerID, election.CreatedAt,
	)
	if err != nil {
		return wrapErr(err, "failed to insert election")
	}

	queryCandidate := `
		INSERT INTO candidates (id, election_id, name, bio, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	stmt, err := tx.PrepareContext(ctx, queryCandidate)
	if err != nil {
		return wrapErr(err, "failed to prepare candidate statement")
	}
	defer stmt.Close()

	for _, c := range election.Candidates {
		_, err = stmt.ExecContext(ctx, c.ID, c.ElectionID, c.Name, c.Bio, c.Position, c.CreatedAt)
		if err != nil {
			return wrapErr(err, "failed to insert candidate")
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(err, "failed to commit transaction")
	}

	return nil
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	return getElection(ctx, r.db, id, false)
}

// getElection loads an election and its candidates. forUpdate takes the row
// lock that serializes appends to the election's ledger.
func getElection(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	election, err := scanElection(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, wrapErr(err, "failed to get election")
	}

	candidates, err := fetchCandidates(ctx, q, election.ID)
	if err != nil {
		return nil, err
	}
	election.Candidates = candidates

	return election, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*domain.Election, error) {
	var (
		e           domain.Election
		description sql.NullString
	)
	err := row.Scan(&e.ID, &e.Title, &description, &e.StartTime, &e.EndTime, &e.Status, &e.OwnerID, &e.Halted, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Description = description.String
	return &e, nil
}

func fetchCandidates(ctx context.Context, q queryer, electionID uuid.UUID) ([]domain.Candidate, error) {
	query := `
		SELECT id, election_id, name, bio, position, created_at
		FROM candidates
		WHERE election_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, wrapErr(err, "failed to get candidates")
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Bio, &c.Position, &c.CreatedAt); err != nil {
			return nil, wrapErr(err, "failed to scan candidate")
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "error iterating candidates")
	}
	return candidates, nil
}

// Transition is a single conditional UPDATE, so concurrent triggers cannot
// interleave. It waits behind an in-flight cast holding the row lock, for at
// most lockTimeout.
func (r *electionRepository) Transition(ctx context.Context, id uuid.UUID, target domain.ElectionStatus) (*domain.Election, bool, error) {
	if _, _, err := domain.NextStatus(domain.StatusPending, target); err != nil {
		return nil, false, err
	}

	sources := make([]string, 0, 2)
	for _, s := range domain.TransitionSources(target) {
		sources = append(sources, string(s))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, wrapErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return nil, false, err
	}

	query := `
		UPDATE elections SET status = $2
		WHERE id = $1 AND status = ANY($3)
		RETURNING ` + electionColumns
	election, err := scanElection(tx.QueryRowContext(ctx, query, id, target, pq.Array(sources)))
	changed := err == nil
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, wrapErr(err, "failed to update election status")
		}
		// Either the election does not exist or it is already at or past target.
		election, err = getElection(ctx, tx, id, false)
		if err != nil {
			return nil, false, err
		}
	} else {
		candidates, err := fetchCandidates(ctx, tx, election.ID)
		if err != nil {
			return nil, false, err
		}
		election.Candidates = candidates
	}

	if err := tx.Commit(); err != nil {
		return nil, false, wrapErr(err, "failed to commit transaction")
	}
	return election, changed, nil
}

func (r *electionRepository) Halt(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := setLockTimeout(ctx, tx, r.lockTimeout); err != nil {
		return err
	}

	query := `
		UPDATE elections
		SET halted_at = COALESCE(halted_at, NOW()), halt_reason = COALESCE(halt_reason, $2)
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query, id, reason)
	if err != nil {
		return wrapErr(err, "failed to halt election")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "failed to halt election")
	}
	if n == 0 {
		return domain.ErrElectionNotFound
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(err, "failed to commit transaction")
	}
	return nil
}

func (r *electionRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.listIDs(ctx, `SELECT id FROM elections ORDER BY created_at`)
}

func (r *electionRepository) ListStartDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return r.listIDs(ctx, `
		SELECT id FROM elections
		WHERE status = 'pending' AND start_time IS NOT NULL AND start_time <= $1
		ORDER BY start_time
	`, now)
}

func (r *electionRepository) ListEndDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return r.listIDs(ctx, `
		SELECT id FROM elections
		WHERE status <> 'completed' AND end_time IS NOT NULL AND end_time <= $1
		ORDER BY end_time
	`, now)
}

func (r *electionRepository) listIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to list elections")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(err, "failed to scan election id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}
	return ids, nil
}
