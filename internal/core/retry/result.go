package retry

import (
	"fmt"

	"github.com/vietddude/luna/internal/core/domain"
)

// State tags the result of a single attempt.
type State int

const (
	StateOk State = iota
	StateRetryable
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateOk:
		return "ok"
	case StateRetryable:
		return "retryable"
	case StateFatal:
		return "fatal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is what an attempt returns: a value, or a failure tagged as
// retryable or fatal together with its kind.
type Result[T any] struct {
	Value T
	State State
	Kind  domain.ErrorKind
	Err   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, State: StateOk}
}

func Retryable[T any](kind domain.ErrorKind, err error) Result[T] {
	return Result[T]{State: StateRetryable, Kind: kind, Err: err}
}

func Fatal[T any](kind domain.ErrorKind, err error) Result[T] {
	return Result[T]{State: StateFatal, Kind: kind, Err: err}
}

// FromError converts a conventional (value, error) pair into a Result.
// Network failures are retryable, everything else is fatal for the retry loop.
func FromError[T any](v T, err error) Result[T] {
	if err == nil {
		return Ok(v)
	}
	kind := domain.KindOf(err)
	if kind == domain.KindNetwork {
		return Retryable[T](kind, err)
	}
	return Fatal[T](kind, err)
}
