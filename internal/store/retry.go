package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff controls Retry. Attempt n waits about Base*2^n, spread by
// Randomization (0.25 means ±25%).
type Backoff struct {
	Attempts      int
	Base          time.Duration
	Randomization float64
}

// DefaultBackoff waits about 800ms, then 1.6s, before the third and final attempt.
var DefaultBackoff = Backoff{Attempts: 3, Base: 800 * time.Millisecond, Randomization: 0.25}

func (b Backoff) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.Base
	eb.RandomizationFactor = b.Randomization
	eb.Multiplier = 2
	eb.MaxInterval = b.Base << b.Attempts
	eb.MaxElapsedTime = 0
	retries := 0
	if b.Attempts > 1 {
		retries = b.Attempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// attempts run out. Exhausted transient failures are wrapped in ErrTransient.
func Retry(ctx context.Context, b Backoff, fn func(ctx context.Context) error) error {
	permanent := false
	err := backoff.Retry(func() error {
		err := fn(ctx)
		if err != nil && !IsTransient(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}, b.policy(ctx))
	if err == nil || permanent || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
