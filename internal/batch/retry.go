package batch

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/phrazzld/lectern/internal/generation"
)

// RetryPolicy bounds the attempts made for one unit of work. Throttling
// errors back off exponentially from InitialDelay up to MaxDelay with
// ±JitterFraction jitter; any other error waits InitialDelay. Every error
// is retried until MaxAttempts is reached.
type RetryPolicy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	JitterFraction float64

	// IsRateLimit classifies errors; defaults to generation.IsRateLimit.
	IsRateLimit func(error) bool
}

// DefaultRetryPolicy returns 5 attempts, 1s initial delay, 60s cap and 10% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialDelay:   time.Second,
		MaxDelay:       60 * time.Second,
		JitterFraction: 0.1,
	}
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) classify(err error) bool {
	if p.IsRateLimit != nil {
		return p.IsRateLimit(err)
	}
	return generation.IsRateLimit(err)
}

// BaseDelay returns the un-jittered wait after the failed attempt with
// 0-based index attempt.
func (p RetryPolicy) BaseDelay(attempt int, rateLimited bool) time.Duration {
	if !rateLimited {
		return p.InitialDelay
	}
	d := float64(p.InitialDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Delay is BaseDelay with jitter applied to rate-limit waits.
func (p RetryPolicy) Delay(attempt int, rateLimited bool) time.Duration {
	base := p.BaseDelay(attempt, rateLimited)
	if !rateLimited || p.JitterFraction <= 0 || base <= 0 {
		return base
	}
	spread := float64(base) * p.JitterFraction
	jittered := float64(base) + spread*(2*rand.Float64()-1)
	if jittered < 0 {
		return 0
	}
	return time.Duration(jittered)
}

// Do calls fn until it succeeds or the policy is exhausted, returning the
// number of attempts made and the last error. Cancelling ctx during a wait
// stops early with the context error.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, fn func(ctx context.Context) error) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	limit := p.maxAttempts()

	var (
		attempts    int
		rateLimited bool
	)
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if attempts >= limit {
			return 0, true
		}
		return p.Delay(attempts-1, rateLimited), false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		rateLimited = p.classify(err)
		logger.Warn("attempt failed",
			"attempt", attempts,
			"max_attempts", limit,
			"rate_limited", rateLimited,
			"error", err)
		return retry.RetryableError(err)
	})
	return attempts, err
}
