package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	delays []time.Duration
	err    error
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func testPolicy(maxAttempts int, s *recordingSleep) Policy {
	p := DefaultPolicy
	p.MaxAttempts = maxAttempts
	p.BaseDelay = time.Second
	p.sleep = s.sleep
	return p
}

func TestDo_ExhaustsAndReturnsOriginalError(t *testing.T) {
	s := &recordingSleep{}
	original := domain.NewError(domain.KindNetwork, "download", "https://example.com/a.zip", errors.New("connection reset"))

	calls := 0
	_, err := Do(context.Background(), testPolicy(4, s), func(ctx context.Context) Result[int] {
		calls++
		return Retryable[int](domain.KindNetwork, original)
	})

	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
	if err != original {
		t.Fatalf("expected original error, got %v", err)
	}
	if len(s.delays) != 3 {
		t.Errorf("expected 3 waits, got %d", len(s.delays))
	}
}

func TestDo_FatalIsNotRetried(t *testing.T) {
	s := &recordingSleep{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(5, s), func(ctx context.Context) Result[string] {
		calls++
		return Fatal[string](domain.KindPrivilege, domain.ErrNotElevated)
	})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, domain.ErrNotElevated) {
		t.Errorf("expected ErrNotElevated, got %v", err)
	}
	if len(s.delays) != 0 {
		t.Errorf("expected no waits, got %v", s.delays)
	}
}

func TestDo_RetryableKindOutsidePolicyIsNotRetried(t *testing.T) {
	s := &recordingSleep{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(5, s), func(ctx context.Context) Result[string] {
		calls++
		return Retryable[string](domain.KindFile, errors.New("sharing violation"))
	})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDo_SingleAttempt(t *testing.T) {
	s := &recordingSleep{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(1, s), func(ctx context.Context) Result[int] {
		calls++
		return Retryable[int](domain.KindNetwork, errors.New("timeout"))
	})

	if calls != 1 || err == nil {
		t.Fatalf("expected one failing call, got calls=%d err=%v", calls, err)
	}
	if len(s.delays) != 0 {
		t.Errorf("expected no waits, got %v", s.delays)
	}
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	s := &recordingSleep{}
	calls := 0
	got, err := Do(context.Background(), testPolicy(3, s), func(ctx context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Retryable[string](domain.KindNetwork, errors.New("503 Service Unavailable"))
		}
		return Ok("done")
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
	if len(s.delays) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(s.delays))
	}

	// 1s then 2s, each with at most 10% jitter
	bounds := [][2]time.Duration{
		{1 * time.Second, 1100 * time.Millisecond},
		{2 * time.Second, 2200 * time.Millisecond},
	}
	for i, d := range s.delays {
		if d < bounds[i][0] || d > bounds[i][1] {
			t.Errorf("wait %d = %v, want within %v", i, d, bounds[i])
		}
	}
}

func TestDo_ConfirmDeclines(t *testing.T) {
	s := &recordingSleep{}
	first := errors.New("first failure")

	var asked []int
	p := testPolicy(5, s).WithConfirm(func(attempt int, err error) bool {
		asked = append(asked, attempt)
		return false
	})

	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) Result[int] {
		calls++
		return Retryable[int](domain.KindNetwork, first)
	})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if err != first {
		t.Errorf("expected last failure, got %v", err)
	}
	if len(asked) != 1 || asked[0] != 2 {
		t.Errorf("expected one prompt before attempt 2, got %v", asked)
	}
}

func TestDo_ConfirmAcceptsEveryRetry(t *testing.T) {
	s := &recordingSleep{}
	prompts := 0
	p := testPolicy(3, s).WithConfirm(func(int, error) bool {
		prompts++
		return true
	})

	calls := 0
	_, _ = Do(context.Background(), p, func(ctx context.Context) Result[int] {
		calls++
		return Retryable[int](domain.KindNetwork, errors.New("timeout"))
	})

	if calls != 3 || prompts != 2 {
		t.Errorf("calls=%d prompts=%d, want 3 and 2", calls, prompts)
	}
}

func TestDo_CancelledDuringWait(t *testing.T) {
	s := &recordingSleep{err: context.Canceled}
	cause := errors.New("timeout")

	calls := 0
	_, err := Do(context.Background(), testPolicy(5, s), func(ctx context.Context) Result[int] {
		calls++
		return Retryable[int](domain.KindNetwork, cause)
	})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, cause) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cause and context.Canceled, got %v", err)
	}
	if domain.KindOf(err) != domain.KindInterrupted {
		t.Errorf("expected interrupted kind, got %s", domain.KindOf(err))
	}
}

func TestWait_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait blocked on a cancelled context")
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	p.Jitter = 0.1
	p.rand = func() float64 { return 1 }
	if got := p.Delay(1); got != 1100*time.Millisecond {
		t.Errorf("Delay with full jitter = %v, want 1.1s", got)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		err  error
		want State
	}{
		{nil, StateOk},
		{domain.NewError(domain.KindNetwork, "get", "u", errors.New("eof")), StateRetryable},
		{domain.NewError(domain.KindFile, "copy", "p", errors.New("denied")), StateFatal},
		{errors.New("plain"), StateFatal},
	}
	for _, tt := range tests {
		if got := FromError(0, tt.err).State; got != tt.want {
			t.Errorf("FromError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	s := &recordingSleep{}
	calls := 0
	err := Run(context.Background(), testPolicy(2, s), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return domain.NewError(domain.KindNetwork, "get", "u", errors.New("reset"))
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}
