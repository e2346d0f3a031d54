package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTokenTTL   = 24 * time.Hour
	DefaultMaxRetries = 3
)

type Options struct {
	// TokenTTL bounds a token's life when its election has no end instant.
	TokenTTL time.Duration
	// MaxRetries is how many times a ConcurrencyConflict is retried before it
	// reaches the caller.
	MaxRetries uint64
	Logger     logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.TokenTTL <= 0 {
		o.TokenTTL = DefaultTokenTTL
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock systemClock
