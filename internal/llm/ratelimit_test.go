package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
)

func fastInvoker(maxAttempts int) *Invoker {
	return NewInvoker(InvokerConfig{
		CallsPerPeriod: 1000,
		Period:         time.Second,
		MaxAttempts:    maxAttempts,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
	}, logger.NewNoOp())
}

func TestInvokeRetriesRateLimited(t *testing.T) {
	calls := 0
	result, err := Invoke(context.Background(), fastInvoker(5), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("429 Too Many Requests")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestInvokeNonRetryablePropagates(t *testing.T) {
	calls := 0
	boom := errors.New("invalid request body")
	_, err := Invoke(context.Background(), fastInvoker(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestInvokeMaxAttemptsExceeded(t *testing.T) {
	calls := 0
	_, err := Invoke(context.Background(), fastInvoker(3), func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("rate limit reached")
	})
	if err == nil {
		t.Fatal("Invoke succeeded, want error")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if !strings.Contains(err.Error(), "max attempts (3) exceeded") {
		t.Errorf("err = %v, want max-attempts message", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestInvokeContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := NewInvoker(InvokerConfig{
		CallsPerPeriod: 1000,
		Period:         time.Second,
		MaxAttempts:    5,
		BaseDelay:      time.Minute,
	}, logger.NewNoOp())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Invoke(ctx, inv, func(ctx context.Context) (string, error) {
		return "", errors.New("429")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestInvokeBlocksUntilQuotaRefills(t *testing.T) {
	period := 100 * time.Millisecond
	inv := NewInvoker(InvokerConfig{
		CallsPerPeriod: 1,
		Period:         period,
		MaxAttempts:    1,
	}, logger.NewNoOp())
	ok := func(ctx context.Context) (string, error) { return "ok", nil }

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := Invoke(context.Background(), inv, ok); err != nil {
			t.Fatalf("Invoke %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < period {
		t.Errorf("second call admitted after %v, want at least %v", elapsed, period)
	}
}

func TestInvokeRetriesReenterQuota(t *testing.T) {
	period := 80 * time.Millisecond
	inv := NewInvoker(InvokerConfig{
		CallsPerPeriod: 1,
		Period:         period,
		MaxAttempts:    2,
		BaseDelay:      time.Millisecond,
	}, logger.NewNoOp())

	calls := 0
	start := time.Now()
	result, err := Invoke(context.Background(), inv, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("429 Too Many Requests")
		}
		return "ok", nil
	})
	if err != nil || result != "ok" {
		t.Fatalf("Invoke = %q, %v", result, err)
	}
	if calls != 2 {
		t.Fatalf("fn called %d times, want 2", calls)
	}
	if elapsed := time.Since(start); elapsed < period {
		t.Errorf("retry ran after %v, want at least %v for a fresh quota slot", elapsed, period)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx := context.Background()

	if err := pool.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := pool.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	blocked, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := pool.Acquire(blocked); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("third Acquire = %v, want deadline exceeded", err)
	}

	pool.Release()
	if err := pool.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
}
