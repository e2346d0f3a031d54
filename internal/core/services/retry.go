package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
)

// retryConflicts runs op, retrying only domain.ErrConcurrencyConflict with
// exponential backoff. Any other error is returned on first sight.
func retryConflicts(ctx context.Context, maxRetries uint64, log logrus.FieldLogger, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 20 * time.Millisecond
	eb.MaxInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		log.WithError(err).WithField("retry_in", wait).Warn("ledger contention, retrying")
	})
}
