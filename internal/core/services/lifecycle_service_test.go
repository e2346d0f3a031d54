package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

func TestLifecycleTransitionsAreIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	election := env.createElection(t, "A")
	assert.Equal(t, domain.StatusPending, election.Status)

	for i := 0; i < 2; i++ {
		e, err := env.lifecycle.StartElection(ctx, election.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, e.Status)
	}

	for i := 0; i < 2; i++ {
		e, err := env.lifecycle.EndElection(ctx, election.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, e.Status)
	}

	e, err := env.lifecycle.StartElection(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, e.Status)
}

func TestLifecycleEndFromPending(t *testing.T) {
	env := newTestEnv(t)
	election := env.createElection(t, "A")

	e, err := env.lifecycle.EndElection(context.Background(), election.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, e.Status)
}

func TestLifecycleUnknownElection(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.lifecycle.StartElection(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)

	_, err = env.lifecycle.EndElection(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
}

func TestLifecycleConcurrentTriggers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	election := env.createElection(t, "A")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.lifecycle.StartElection(ctx, election.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	e, err := env.elections.GetElection(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, e.Status)
}
