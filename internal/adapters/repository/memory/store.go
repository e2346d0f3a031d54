// Package memory keeps elections, tokens and the vote ledger in process. It
// honours the same locking and atomicity contract as the postgres adapter and
// backs unit tests and single-process dev runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

const DefaultLockTimeout = 2 * time.Second

type tokenKey struct {
	voterID    uuid.UUID
	electionID uuid.UUID
}

type Store struct {
	mu          sync.RWMutex
	elections   map[uuid.UUID]*domain.Election
	order       []uuid.UUID
	tokens      map[tokenKey]*domain.EligibilityToken
	tokenHashes map[string]tokenKey
	votes       map[uuid.UUID][]domain.VoteRecord
	voteHashes  map[string]struct{}
	seq         int64

	locksMu     sync.Mutex
	locks       map[uuid.UUID]chan struct{}
	lockTimeout time.Duration
}

type Option func(*Store)

// WithLockTimeout bounds how long a writer waits for an election's lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		elections:   map[uuid.UUID]*domain.Election{},
		tokens:      map[tokenKey]*domain.EligibilityToken{},
		tokenHashes: map[string]tokenKey{},
		votes:       map[uuid.UUID][]domain.VoteRecord{},
		voteHashes:  map[string]struct{}{},
		locks:       map[uuid.UUID]chan struct{}{},
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Elections() *ElectionRepository { return &ElectionRepository{s: s} }
func (s *Store) Tokens() *TokenRepository       { return &TokenRepository{s: s} }
func (s *Store) Ballots() *BallotStore          { return &BallotStore{s: s} }
func (s *Store) Votes() *VoteRepository         { return &VoteRepository{s: s} }

// lockElection takes the per-election writer lock. Elections never contend with
// each other. Unknown elections get no lock; elections are never removed, so
// the check stays true once it passes.
func (s *Store) lockElection(ctx context.Context, id uuid.UUID) (func(), error) {
	s.mu.RLock()
	_, exists := s.elections[id]
	s.mu.RUnlock()
	if !exists {
		return nil, domain.ErrElectionNotFound
	}

	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	s.locksMu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-timer.C:
		return nil, domain.ErrConcurrencyConflict
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func copyElection(e *domain.Election) *domain.Election {
	c := *e
	c.Candidates = append([]domain.Candidate(nil), e.Candidates...)
	return &c
}

// OverwriteVoteForTesting edits a stored record in place, bypassing the
// append-only API. Only tests call it, to check that verification notices.
func (s *Store) OverwriteVoteForTesting(electionID uuid.UUID, index int, mutate func(*domain.VoteRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.votes[electionID][index])
}
