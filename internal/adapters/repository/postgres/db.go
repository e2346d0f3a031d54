package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c Config) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.DBName, sslMode)
}

// Open connects and pings. The caller owns the returned pool.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// setLockTimeout bounds every row-lock wait for the rest of tx. A wait past d
// fails with lock_not_available, which wrapErr reports as a conflict.
func setLockTimeout(ctx context.Context, tx *sql.Tx, d time.Duration) error {
	if d <= 0 {
		d = DefaultLockTimeout
	}
	timeout := fmt.Sprintf("%dms", d.Milliseconds())
	if _, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return wrapErr(err, "failed to set lock timeout")
	}
	return nil
}

const votePrevHashConstraint = "vote_records_election_id_prev_hash_key"

// wrapErr classifies driver errors into the domain's transient kinds.
func wrapErr(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "lock_not_available", "serialization_failure", "deadlock_detected":
			return fmt.Errorf("%s: %w: %w", msg, domain.ErrConcurrencyConflict, err)
		case "unique_violation":
			if pqErr.Constraint == votePrevHashConstraint {
				return fmt.Errorf("%s: %w: %w", msg, domain.ErrConcurrencyConflict, err)
			}
		}
	}
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrPersistence, err)
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation"
}
