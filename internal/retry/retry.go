// Package retry runs an operation under a bounded attempt count with a fixed
// delay schedule.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how an operation is retried. The zero value runs the
// operation once.
type Policy struct {
	MaxAttempts int
	// Delays[i] is the wait after attempt i+1 fails. The last entry is reused
	// when there are more attempts than delays.
	Delays []time.Duration
	// Retryable decides whether a failed attempt may be retried. nil retries
	// every error except Permanent ones.
	Retryable func(error) bool
	// Sleep waits for d or until ctx is done. nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait with the attempt that failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying regardless of the policy.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if len(p.Delays) == 0 || attempt < 1 {
		return 0
	}
	i := attempt - 1
	if i >= len(p.Delays) {
		i = len(p.Delays) - 1
	}
	return p.Delays[i]
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. attempt is 1-based. Non-retryable errors are returned as
// is; exhaustion returns *ExhaustedError. Cancellation of ctx between attempts
// returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	limit := p.MaxAttempts
	if limit < 1 {
		limit = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var last error
	for attempt := 1; attempt <= limit; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) || !p.retryable(err) {
			return err
		}
		last = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt == limit {
			break
		}
		d := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, d, err)
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: limit, Last: last}
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Sleep waits for d, returning early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
