package frappekit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	if p.MaxRetries != 1 || p.Strategy != ConstantDelay || p.InitialBackoff != time.Second {
		t.Errorf("Unexpected default policy %+v", p)
	}
}

func TestBackoffStrategyString(t *testing.T) {
	tests := map[BackoffStrategy]string{
		ConstantDelay:      "ConstantDelay",
		ExponentialJitter:  "ExponentialJitter",
		DecorrelatedJitter: "DecorrelatedJitter",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestRetryPolicyRun(t *testing.T) {
	tests := []struct {
		name      string
		policy    RetryPolicy
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"no retry", NoRetry(), 1, errors.New("x"), 1, true},
		{"recovers", RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond}, 2, errors.New("x"), 3, false},
		{"exhausted", RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond}, 5, errors.New("x"), 3, true},
		{"exponential", RetryPolicy{MaxRetries: 2, Strategy: ExponentialJitter, InitialBackoff: time.Millisecond, Jitter: 0.5}, 2, errors.New("x"), 3, false},
		{"decorrelated", RetryPolicy{MaxRetries: 2, Strategy: DecorrelatedJitter, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}, 2, errors.New("x"), 3, false},
		{"cancelled is permanent", RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond}, 5, context.Canceled, 1, true},
		{"disabled is permanent", RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond}, 5, ErrQueryDisabled, 1, true},
		{"custom retryable", RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, Retryable: IsTransient},
			5, &ClientError{Kind: ErrorKindUnauthorized}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			fetch := func(ctx context.Context) (any, error) {
				calls++
				if calls <= tt.failures {
					return nil, tt.err
				}
				return "ok", nil
			}
			retries := 0
			v, err := tt.policy.run(context.Background(), fetch, func(int, error, time.Duration) { retries++ })

			if calls != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d", tt.wantCalls, calls)
			}
			if retries != calls-1 {
				t.Errorf("Expected %d retry notifications, got %d", calls-1, retries)
			}
			if tt.wantErr {
				if !errors.Is(err, tt.err) {
					t.Errorf("Expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil || v != "ok" {
				t.Errorf("Expected ok, got %v, %v", v, err)
			}
		})
	}
}

func TestRetryPolicyRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxRetries: 5, InitialBackoff: time.Hour}

	calls := 0
	_, err := p.run(ctx, func(context.Context) (any, error) {
		calls++
		cancel()
		return nil, errors.New("x")
	}, nil)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if calls != 1 {
		t.Errorf("Expected no retry after cancellation, got %d calls", calls)
	}
}
