package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

// ConfirmFunc is asked before every retry. attempt is the number of the
// attempt about to run (2 for the first retry). Returning false stops retrying.
type ConfirmFunc func(attempt int, err error) bool

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Jitter         float64 // fraction of the delay added at most, 0.1 = 10%
	RetryableKinds []domain.ErrorKind
	Confirm        ConfirmFunc

	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

// DefaultPolicy retries network failures three times: 1s, 2s (plus jitter).
var DefaultPolicy = Policy{
	MaxAttempts:    3,
	BaseDelay:      1 * time.Second,
	MaxDelay:       30 * time.Second,
	Jitter:         0.1,
	RetryableKinds: []domain.ErrorKind{domain.KindNetwork},
}

// WithConfirm returns a copy of p that asks confirm before each retry.
func (p Policy) WithConfirm(confirm ConfirmFunc) Policy {
	p.Confirm = confirm
	return p
}

// Retries reports whether a failure of the given kind may be retried.
func (p Policy) Retries(kind domain.ErrorKind) bool {
	return slices.Contains(p.RetryableKinds, kind)
}

// Delay returns the wait after the given failed attempt (1-based):
// BaseDelay * 2^(attempt-1), capped at MaxDelay, plus up to Jitter of itself.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		random := rand.Float64
		if p.rand != nil {
			random = p.rand
		}
		delay += delay * p.Jitter * random()
	}
	return time.Duration(delay)
}

// Do runs action until it succeeds, fails with a non-retryable result, the
// attempts run out, or Confirm declines. The error returned is the one the
// last attempt produced, unwrapped, so callers can still classify it.
func Do[T any](ctx context.Context, p Policy, action func(ctx context.Context) Result[T]) (T, error) {
	var zero T

	maxAttempts := max(p.MaxAttempts, 1)
	sleep := p.sleep
	if sleep == nil {
		sleep = wait
	}

	var last Result[T]
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && p.Confirm != nil && !p.Confirm(attempt, last.Err) {
			slog.Info("Retry declined", "attempt", attempt, "error", last.Err)
			return zero, last.Err
		}

		last = action(ctx)
		if last.State == StateOk {
			return last.Value, nil
		}
		if last.Err == nil {
			last.Err = errors.New("attempt failed without error")
		}

		if last.State == StateFatal || !p.Retries(last.Kind) {
			return zero, last.Err
		}
		if attempt == maxAttempts {
			break
		}

		delay := p.Delay(attempt)
		slog.Warn("Attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"kind", last.Kind,
			"error", last.Err,
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, errors.Join(last.Err, err)
		}
	}

	slog.Error("Retries exhausted", "attempts", maxAttempts, "error", last.Err)
	return zero, last.Err
}

// Run is Do for actions that only return an error.
func Run(ctx context.Context, p Policy, action func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) Result[struct{}] {
		return FromError(struct{}{}, action(ctx))
	})
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
