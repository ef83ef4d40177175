// Package txretry retries transactional units of work that fail from
// storage contention, with bounded linear backoff between attempts.
package txretry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Policy is an immutable description of the retry behavior. Construct one
// and pass it in; there is no process-wide mutable state.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is multiplied by the attempt number to produce the
	// backoff before the next attempt: BaseDelay, 2*BaseDelay, ...
	BaseDelay time.Duration
}

// DefaultPolicy matches the storage engine's observed lock-release timing:
// three attempts with 200ms and 400ms pauses between them.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}

// ErrInterrupted is returned when the context is cancelled while waiting
// out a backoff delay. It is fatal to the request, never retried.
var ErrInterrupted = errors.New("interrupted while waiting to retry")

// BusyError is returned when every attempt failed with contention. It is
// deliberately distinct from the last cause, which it wraps for diagnostics.
type BusyError struct {
	Attempts int
	Cause    error
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("storage busy after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *BusyError) Unwrap() error {
	return e.Cause
}

// Runner executes units of work, retrying those whose failure classifies
// as retryable. Attempts for one call are strictly sequential; the backoff
// sleep blocks only the calling goroutine.
type Runner struct {
	policy    Policy
	retryable func(error) bool
	log       zerolog.Logger
}

// NewRunner builds a Runner. retryable decides whether a failure is worth
// another attempt; everything else propagates immediately.
func NewRunner(policy Policy, retryable func(error) bool, log zerolog.Logger) *Runner {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Runner{policy: policy, retryable: retryable, log: log}
}

// Run invokes fn until it succeeds, fails non-retryably, or exhausts the
// policy. fn must create its own transaction per invocation; the Runner
// never reuses state across attempts.
func (r *Runner) Run(ctx context.Context, fn func(context.Context) error) error {
	var last error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !r.retryable(err) {
			return err
		}
		last = err

		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := time.Duration(attempt) * r.policy.BaseDelay
		r.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("storage contention, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
	}
	return &BusyError{Attempts: r.policy.MaxAttempts, Cause: last}
}
