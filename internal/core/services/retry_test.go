package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

func TestRetryConflicts(t *testing.T) {
	ctx := context.Background()
	log := quietLogger()

	t.Run("recovers after conflicts", func(t *testing.T) {
		calls := 0
		err := retryConflicts(ctx, 3, log, func() error {
			calls++
			if calls < 3 {
				return domain.ErrConcurrencyConflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := retryConflicts(ctx, 2, log, func() error {
			calls++
			return domain.ErrConcurrencyConflict
		})
		assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := retryConflicts(ctx, 3, log, func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}
