// Package retry is a bounded retry-with-backoff helper, used only by
// cmd/arroyo-plan's CLI harness to poll a mock front-end for a validated
// plan -- the planning core itself never retries anything (§7: "nothing
// is retried or masked inside the core"); this package exists purely for
// the demo harness's own external-call-style interaction.
//
// Grounded on original_source's crates/arroyo/src/run.rs, whose retry!
// macro bounds an attempt count and backs off between retries of a flaky
// API call, and styled after the teacher's
// core/pkg/kernel/retry/backoff.go exponential-backoff-with-cap shape
// (this package omits the teacher's deterministic-jitter hashing: a CLI
// demo polling an in-process mock has no need to reproduce a specific
// delay sequence across runs).
package retry

import (
	"context"
	"time"

	"github.com/arroyo-project/planner/pkg/planerr"
)

// Params bounds a retry loop: at most MaxAttempts calls, with delay
// doubling from InitialDelay up to a cap of MaxDelay between attempts.
type Params struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Do calls fn until it reports done, ctx is canceled, or MaxAttempts is
// exhausted, sleeping an exponentially increasing delay between attempts.
// fn returns its result, whether that result is final, and an error; a
// non-nil error is treated the same as done=false (worth retrying) unless
// attempts are exhausted, at which point the last error is returned.
func Do[T any](ctx context.Context, p Params, fn func(attempt int) (T, bool, error), onAttemptFailed func(attempt int, err error)) (T, error) {
	var zero T
	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		val, done, err := fn(attempt)
		if err == nil && done {
			return val, nil
		}
		if err != nil {
			lastErr = err
			if onAttemptFailed != nil {
				onAttemptFailed(attempt, err)
			}
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	if lastErr != nil {
		return zero, planerr.Wrap(planerr.KindInternal, lastErr, "retry: exhausted %d attempts", p.MaxAttempts)
	}
	return zero, planerr.Internal("retry: exhausted %d attempts without success or error", p.MaxAttempts)
}
