package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
)

// InvokerConfig sets the admission quota and retry policy for calls into the
// generation service. The defaults match the deployed quota of two calls per
// sixty-second window.
type InvokerConfig struct {
	// CallsPerPeriod and Period define the token bucket: CallsPerPeriod calls
	// are admitted per rolling Period, excess callers block until a slot frees.
	CallsPerPeriod int
	Period         time.Duration

	// MaxAttempts bounds the retry loop; BaseDelay doubles each attempt and
	// is capped at MaxDelay.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (c InvokerConfig) withDefaults() InvokerConfig {
	if c.CallsPerPeriod <= 0 {
		c.CallsPerPeriod = 2
	}
	if c.Period <= 0 {
		c.Period = time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

// Invoker gates every outbound generation call behind a shared token bucket
// and retries retryable failures with exponential backoff. One Invoker is
// constructed at startup and shared by all components; the bucket only limits
// how many calls are admitted, it does not serialize the work itself.
type Invoker struct {
	limiter *rate.Limiter
	cfg     InvokerConfig
	log     logger.Logger
}

func NewInvoker(cfg InvokerConfig, log logger.Logger) *Invoker {
	cfg = cfg.withDefaults()
	perSecond := float64(cfg.CallsPerPeriod) / cfg.Period.Seconds()
	return &Invoker{
		limiter: rate.NewLimiter(rate.Limit(perSecond), cfg.CallsPerPeriod),
		cfg:     cfg,
		log:     log,
	}
}

// Invoke admits fn through the token bucket and retries rate-limit and
// timeout failures up to the attempt ceiling. Non-retryable failures
// propagate immediately. Every attempt re-enters the bucket, so retries
// count against the quota like first calls.
func Invoke[T any](ctx context.Context, inv *Invoker, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	var lastErr error
	for attempt := 1; attempt <= inv.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(float64(inv.cfg.BaseDelay) * math.Pow(2, float64(attempt-2)))
			if delay > inv.cfg.MaxDelay {
				delay = inv.cfg.MaxDelay
			}
			inv.log.Info("retry attempt %d/%d after %v", attempt, inv.cfg.MaxAttempts, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		if err := inv.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limiter wait: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				inv.log.Info("retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}

		err = Classify(err)
		if !Retryable(err) {
			return zero, err
		}
		inv.log.Warn("retryable failure on attempt %d/%d: %v", attempt, inv.cfg.MaxAttempts, err)
		lastErr = err
	}

	return zero, fmt.Errorf("max attempts (%d) exceeded: %w", inv.cfg.MaxAttempts, lastErr)
}
