package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/ports"
)

// TestLedgerFlow covers two voters, a double vote, the tally and the chain.
func TestLedgerFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	ctx := context.Background()

	election := app.activeElection(t, "A", "B")
	a, b := election.Candidates[0].ID, election.Candidates[1].ID
	v1, v2 := uuid.New(), uuid.New()
	app.issue(t, v1, election.ID)
	app.issue(t, v2, election.ID)

	r1, err := app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: v1, ElectionID: election.ID, CandidateID: a})
	require.NoError(t, err)
	r2, err := app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: v2, ElectionID: election.ID, CandidateID: b})
	require.NoError(t, err)

	_, err = app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: v1, ElectionID: election.ID, CandidateID: b})
	assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)

	records, err := app.Votes.ListByElection(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.GenesisHash, records[0].PrevHash)
	assert.Equal(t, r1.VoteHash, records[0].VoteHash)
	assert.Equal(t, r1.VoteHash, records[1].PrevHash)
	assert.Equal(t, r2.VoteHash, records[1].VoteHash)
	assert.True(t, r2.Timestamp.Equal(records[1].CreatedAt))

	result, err := app.TallySvc.Tally(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalVotes)
	require.Len(t, result.Results, 2)
	assert.Equal(t, a, result.Results[0].CandidateID)
	assert.Equal(t, b, result.Results[1].CandidateID)

	report, err := app.VotingSvc.VerifyChain(ctx, election.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid, report.Reason)
	assert.Equal(t, 2, report.Length)

	receipt, err := app.VotingSvc.GetReceipt(ctx, election.ID, r2.VoteHash)
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.Index)
}

func TestConcurrentVoters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	const voters = 50

	app := setupTestApp(t)
	ctx := context.Background()

	election := app.activeElection(t, "A", "B")
	ids := make([]uuid.UUID, voters)
	for i := range ids {
		ids[i] = uuid.New()
	}
	_, err := app.TokenSvc.IssueTokens(ctx, election.ID, ids)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i, voterID := range ids {
		wg.Add(1)
		go func(voterID, candidateID uuid.UUID) {
			defer wg.Done()
			_, err := app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: candidateID})
			errs <- err
		}(voterID, election.Candidates[i%2].ID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	records, err := app.Votes.ListByElection(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, records, voters)

	report, err := app.VotingSvc.VerifyChain(ctx, election.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid, report.Reason)

	result, err := app.TallySvc.Tally(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(voters), result.TotalVotes)
}

func TestConcurrentRedemptionOfOneToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	const attempts = 10

	app := setupTestApp(t)
	ctx := context.Background()

	election := app.activeElection(t, "A")
	voterID := uuid.New()
	app.issue(t, voterID, election.ID)

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: election.Candidates[0].ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)
	}
	assert.Equal(t, 1, succeeded)

	records, err := app.Votes.ListByElection(ctx, election.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRejectedCastLeavesTokenUnused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	ctx := context.Background()

	election := app.activeElection(t, "A")
	other := app.activeElection(t, "X")
	voterID := uuid.New()
	app.issue(t, voterID, election.ID)

	_, err := app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: other.Candidates[0].ID})
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)

	_, err = app.LifecycleSvc.EndElection(ctx, election.ID)
	require.NoError(t, err)
	_, err = app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: election.Candidates[0].ID})
	assert.ErrorIs(t, err, domain.ErrElectionNotActive)

	token, err := app.Tokens.GetByVoter(ctx, voterID, election.ID)
	require.NoError(t, err)
	assert.False(t, token.Used)
}

func TestLockTimeoutSurfacesConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestAppWith(t, appConfig{lockTimeout: 100 * time.Millisecond, maxRetries: 1})
	ctx := context.Background()

	election := app.activeElection(t, "A")
	voterID := uuid.New()
	app.issue(t, voterID, election.ID)

	holder, err := app.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = holder.ExecContext(ctx, `SELECT id FROM elections WHERE id = $1 FOR UPDATE`, election.ID)
	require.NoError(t, err)

	_, err = app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: election.Candidates[0].ID})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	require.NoError(t, holder.Rollback())

	token, err := app.Tokens.GetByVoter(ctx, voterID, election.ID)
	require.NoError(t, err)
	assert.False(t, token.Used)

	_, err = app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: election.Candidates[0].ID})
	assert.NoError(t, err)
}

func TestStorageGuards(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	ctx := context.Background()

	election := app.activeElection(t, "A")
	voterID := uuid.New()
	app.issue(t, voterID, election.ID)
	_, err := app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: election.Candidates[0].ID})
	require.NoError(t, err)

	_, err = app.DB.ExecContext(ctx, `UPDATE vote_records SET candidate_id = candidate_id WHERE election_id = $1`, election.ID)
	assert.ErrorContains(t, err, "append-only")

	_, err = app.DB.ExecContext(ctx, `DELETE FROM vote_records WHERE election_id = $1`, election.ID)
	assert.ErrorContains(t, err, "append-only")

	_, err = app.DB.ExecContext(ctx, `UPDATE eligibility_tokens SET used = FALSE WHERE voter_id = $1`, voterID)
	assert.ErrorContains(t, err, "cannot be reset")

	_, err = app.DB.ExecContext(ctx, `
		INSERT INTO vote_records (id, vote_hash, prev_hash, election_id, candidate_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, uuid.New(), "forged", domain.GenesisHash, election.ID, election.Candidates[0].ID)
	assert.ErrorContains(t, err, "vote_records_election_id_prev_hash_key")
}

func TestTamperedChainHaltsElection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	ctx := context.Background()

	election := app.activeElection(t, "A", "B")
	for i := 0; i < 3; i++ {
		voterID := uuid.New()
		app.issue(t, voterID, election.ID)
		_, err := app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: election.Candidates[0].ID})
		require.NoError(t, err)
	}

	// Simulate someone with direct database access rewriting a ballot.
	_, err := app.DB.ExecContext(ctx, `ALTER TABLE vote_records DISABLE TRIGGER vote_records_append_only`)
	require.NoError(t, err)
	_, err = app.DB.ExecContext(ctx, `
		UPDATE vote_records SET candidate_id = $2
		WHERE seq = (SELECT seq FROM vote_records WHERE election_id = $1 ORDER BY seq OFFSET 1 LIMIT 1)
	`, election.ID, election.Candidates[1].ID)
	require.NoError(t, err)
	_, err = app.DB.ExecContext(ctx, `ALTER TABLE vote_records ENABLE TRIGGER vote_records_append_only`)
	require.NoError(t, err)

	reports, err := app.AuditSvc.AuditAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Valid)
	assert.Equal(t, 1, reports[0].FirstBrokenIndex)

	halted, err := app.ElectionSvc.GetElection(ctx, election.ID)
	require.NoError(t, err)
	assert.True(t, halted.Halted)

	voterID := uuid.New()
	app.issue(t, voterID, election.ID)
	_, err = app.VotingSvc.CastVote(ctx, ports.CastVoteInput{VoterID: voterID, ElectionID: election.ID, CandidateID: election.Candidates[0].ID})
	assert.ErrorIs(t, err, domain.ErrChainIntegrityViolation)
}
