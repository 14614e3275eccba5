package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func retryableClassifier(error) ErrorClassification {
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

func TestExecutorRetriesUntilSuccess(t *testing.T) {
	executor := NewExecutor(testConfig(), nil)

	calls := 0
	err := executor.Execute(context.Background(), "publish", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryableClassifier)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("Execute() made %d calls, want 3", calls)
	}
}

func TestExecutorStopsAtMaxAttempts(t *testing.T) {
	executor := NewExecutor(testConfig(), nil)

	calls := 0
	wantErr := errors.New("broker down")
	err := executor.Execute(context.Background(), "publish", func(context.Context) error {
		calls++
		return wantErr
	}, retryableClassifier)

	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("Execute() made %d calls, want 3", calls)
	}
}

func TestExecutorSkipsRetryForNonRetryable(t *testing.T) {
	executor := NewExecutor(testConfig(), nil)

	calls := 0
	err := executor.Execute(context.Background(), "publish", func(context.Context) error {
		calls++
		return errors.New("bad payload")
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	})

	if err == nil {
		t.Fatal("Execute() expected error")
	}
	if calls != 1 {
		t.Errorf("Execute() made %d calls, want 1", calls)
	}
}

func TestExecutorHonorsContextCancellation(t *testing.T) {
	executor := NewExecutor(testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := executor.Execute(ctx, "publish", func(context.Context) error {
		t.Fatal("callback should not run with cancelled context")
		return nil
	}, retryableClassifier)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestExecutorBreakerOpensAfterFailures(t *testing.T) {
	cfg := testConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 3
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.BreakerHalfOpenMaxCalls = 1
	executor := NewExecutor(cfg, nil)

	fail := func(context.Context) error { return errors.New("down") }
	for i := 0; i < 3; i++ {
		_ = executor.Execute(context.Background(), "publish", fail, retryableClassifier)
	}

	err := executor.Execute(context.Background(), "publish", fail, retryableClassifier)
	if !IsCircuitOpen(err) {
		t.Fatalf("Execute() error = %v, want open circuit", err)
	}
}

func TestExecutorNilCallback(t *testing.T) {
	executor := NewExecutor(testConfig(), nil)
	if err := executor.Execute(context.Background(), "publish", nil, nil); err == nil {
		t.Fatal("Execute() expected error for nil callback")
	}
}
