package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSleeper struct {
	calls []time.Duration
	err   error
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.calls = append(f.calls, d)
	return f.err
}

func TestPolicyDo(t *testing.T) {
	errDown := errors.New("network down")

	tests := []struct {
		name         string
		maxAttempts  int
		failFirst    int
		wantSuccess  bool
		wantAttempts int
		wantSleeps   int
	}{
		{"first try", 5, 0, true, 1, 0},
		{"third try", 5, 2, true, 3, 2},
		{"last try", 3, 2, true, 3, 2},
		{"gives up", 3, 10, false, 3, 2},
		{"zero attempts means one", 0, 10, false, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &fakeSleeper{}
			p := Policy{MaxAttempts: tt.maxAttempts, Delay: 500 * time.Millisecond, Sleep: sleeper.Sleep}

			calls := 0
			result := p.Do(context.Background(), "connect", func(attempt int) error {
				calls++
				if attempt != calls {
					t.Errorf("attempt = %d, want %d", attempt, calls)
				}
				if attempt <= tt.failFirst {
					return errDown
				}
				return nil
			})

			if result.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", result.Success, tt.wantSuccess)
			}
			if result.Attempts != tt.wantAttempts {
				t.Errorf("Attempts = %d, want %d", result.Attempts, tt.wantAttempts)
			}
			if len(sleeper.calls) != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", len(sleeper.calls), tt.wantSleeps)
			}
			for _, d := range sleeper.calls {
				if d != 500*time.Millisecond {
					t.Errorf("sleep = %v, want fixed 500ms", d)
				}
			}
			if !tt.wantSuccess && !errors.Is(result.Err, errDown) {
				t.Errorf("Err = %v, want wrapping %v", result.Err, errDown)
			}
			if tt.wantSuccess && result.Err != nil {
				t.Errorf("Err = %v, want nil", result.Err)
			}
		})
	}
}

func TestPolicyDoCancelledWhileWaiting(t *testing.T) {
	sleeper := &fakeSleeper{err: context.Canceled}
	p := Policy{MaxAttempts: 5, Delay: time.Second, Sleep: sleeper.Sleep}

	result := p.Do(context.Background(), "connect", func(int) error {
		return errors.New("fail")
	})
	if result.Success {
		t.Error("Success = true, want false")
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if !errors.Is(result.Err, context.Canceled) {
		t.Errorf("Err = %v, want %v", result.Err, context.Canceled)
	}
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep(cancelled) = %v, want %v", err, context.Canceled)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() = %v, want nil", err)
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 20 || p.Delay != 500*time.Millisecond {
		t.Errorf("DefaultPolicy() = %+v, want 20 attempts 500ms apart", p)
	}
}
