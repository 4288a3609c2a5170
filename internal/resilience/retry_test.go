package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(maxAttempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetry_Success(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return nil
	}, fastRetryConfig(3), nil)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetry_FailureThenSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, fastRetryConfig(3), nil)

	if err != nil {
		t.Errorf("Expected no error after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_MaxAttempts(t *testing.T) {
	attempts := 0
	wantErr := errors.New("persistent error")
	err := Retry(context.Background(), func() error {
		attempts++
		return wantErr
	}, fastRetryConfig(2), nil)

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected persistent error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestRetry_NonRetryableStopsEarly(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return errors.New("fatal error")
	}, fastRetryConfig(5), func(error) bool { return false })

	if err == nil {
		t.Error("Expected error to be returned")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, func() error {
		attempts++
		cancel()
		return errors.New("temporary error")
	}, fastRetryConfig(5), nil)

	if err == nil {
		t.Error("Expected error after cancellation")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation stopped retries, got %d", attempts)
	}
}

func TestIsRetryableNetworkError(t *testing.T) {
	if !IsRetryableNetworkError(errors.New("dial tcp: connection refused")) {
		t.Error("Expected connection refused to be retryable")
	}
	if !IsRetryableNetworkError(errors.New("context deadline exceeded")) {
		t.Error("Expected deadline exceeded to be retryable")
	}
	if IsRetryableNetworkError(errors.New("invalid credentials")) {
		t.Error("Expected credential error to be non-retryable")
	}
	if IsRetryableNetworkError(nil) {
		t.Error("Expected nil to be non-retryable")
	}
}
