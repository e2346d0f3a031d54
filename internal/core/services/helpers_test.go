package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

var baseTime = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// testClock ticks one millisecond per reading so consecutive votes get
// distinct timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: baseTime}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type testEnv struct {
	store     *memory.Store
	clock     *testClock
	elections ports.ElectionService
	lifecycle ports.LifecycleService
	tokens    ports.TokenService
	voting    ports.VotingService
	tally     ports.TallyService
	audit     ports.AuditService
	scheduler ports.SchedulerService
}

func newTestEnv(t *testing.T, storeOpts ...memory.Option) *testEnv {
	return newTestEnvWith(t, Options{}, storeOpts...)
}

func newTestEnvWith(t *testing.T, opts Options, storeOpts ...memory.Option) *testEnv {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	store := memory.NewStore(storeOpts...)
	clock := newTestClock()

	electionRepo := store.Elections()
	lifecycle := NewLifecycleService(electionRepo, opts)
	voting := NewVotingService(store.Ballots(), store.Votes(), electionRepo, clock, opts)

	return &testEnv{
		store:     store,
		clock:     clock,
		elections: NewElectionService(electionRepo, clock, opts),
		lifecycle: lifecycle,
		tokens:    NewTokenService(electionRepo, store.Tokens(), clock, opts),
		voting:    voting,
		tally:     NewTallyService(electionRepo, store.Votes()),
		audit:     NewAuditService(electionRepo, voting, opts),
		scheduler: NewSchedulerService(electionRepo, lifecycle, clock, opts),
	}
}

func (e *testEnv) createElection(t *testing.T, names ...string) *domain.Election {
	t.Helper()

	input := ports.CreateElectionInput{Title: "Board election", OwnerID: uuid.New()}
	for _, n := range names {
		input.Candidates = append(input.Candidates, ports.CandidateInput{Name: n})
	}
	election, err := e.elections.Create(context.Background(), input)
	require.NoError(t, err)
	return election
}

func (e *testEnv) activeElection(t *testing.T, names ...string) *domain.Election {
	t.Helper()

	election := e.createElection(t, names...)
	_, err := e.lifecycle.StartElection(context.Background(), election.ID)
	require.NoError(t, err)
	return election
}

func (e *testEnv) issue(t *testing.T, voterID, electionID uuid.UUID) *domain.IssueResult {
	t.Helper()

	res, err := e.tokens.IssueToken(context.Background(), voterID, electionID)
	require.NoError(t, err)
	require.False(t, res.AlreadyIssued)
	return res
}

func (e *testEnv) ledger(t *testing.T, electionID uuid.UUID) []domain.VoteRecord {
	t.Helper()

	records, err := e.store.Votes().ListByElection(context.Background(), electionID)
	require.NoError(t, err)
	return records
}

func (e *testEnv) tokenUsed(t *testing.T, voterID, electionID uuid.UUID) bool {
	t.Helper()

	token, err := e.store.Tokens().GetByVoter(context.Background(), voterID, electionID)
	require.NoError(t, err)
	return token.Used
}
