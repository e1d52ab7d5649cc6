// Package retry provides exponential backoff for transient git and network
// failures encountered by the coordinator's git plumbing.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/lumenflow/lumenflow/pkg/logger"
)

var log = logger.New("retry:backoff")

// ErrContextCanceled is returned when the context is canceled while waiting
// between retry attempts.
var ErrContextCanceled = errors.New("context canceled while waiting to retry")

// Config controls the exponential backoff schedule.
type Config struct {
	// MaxAttempts is the maximum number of calls to fn, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration
	// Multiplier scales the delay on each subsequent attempt.
	Multiplier float64
}

// Preset is the capped exponential backoff schedule used by the micro-worktree
// transactor for git fetch/push/branch-delete operations.
var Preset = Config{
	MaxAttempts:    4,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     8 * time.Second,
	Multiplier:     2.0,
}

// Backoff returns the delay before the given retry attempt (0-indexed: attempt
// 0 is the delay before the first retry, following the first failed call).
func (c Config) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.InitialBackoff
	}
	d := float64(c.InitialBackoff) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	return time.Duration(d)
}

// Retryable marks an error as safe to retry. Git/network errors should be
// wrapped with this before being returned from fn when they're transient;
// validation and state-machine errors must never be wrapped this way.
type Retryable struct {
	Err error
}

func (r *Retryable) Error() string { return r.Err.Error() }
func (r *Retryable) Unwrap() error { return r.Err }

// WrapRetryable marks err as transient/retryable. A nil err returns nil.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &Retryable{Err: err}
}

func isRetryable(err error) bool {
	var r *Retryable
	return errors.As(err, &r)
}

// Do executes fn, retrying with exponential backoff while fn returns an error
// wrapped with WrapRetryable, up to cfg.MaxAttempts total calls. Any
// non-retryable error is returned immediately without retrying.
func Do(ctx context.Context, cfg Config, label string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				log.Printf("%s succeeded after retry: attempt=%d", label, attempt+1)
			}
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		backoff := cfg.Backoff(attempt)
		log.Printf("%s failed, backing off: attempt=%d backoff=%v error=%v", label, attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		case <-time.After(backoff):
		}
	}
	return lastErr
}
