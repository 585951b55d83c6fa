package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transient failures of the wrapped provider with
// capped exponential backoff. An invalid response is retried at most once
// per call since the model tends to repeat itself.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps p with the retry policy in cfg.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(r.config.MaxAttempts, 1)
	sawInvalid := false

	for attempt := 0; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		retryable := transient(err)
		var inv *ErrInvalidResponse
		if errors.As(err, &inv) {
			retryable = !sawInvalid
			sawInvalid = true
		}
		if !retryable || attempt+1 >= attempts {
			return nil, err
		}

		timer := time.NewTimer(r.backoff(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// transient reports whether another attempt could succeed. Cancellation
// and permanent provider errors end the call.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsPermanent(err)
}

// backoff returns the wait before the attempt after the given one. A rate
// limit's Retry-After wins over the computed delay.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := r.config.InitialWait
	for i := 0; i < attempt && wait < r.config.MaxWait; i++ {
		wait = time.Duration(float64(wait) * r.config.Multiplier)
	}
	wait = min(wait, r.config.MaxWait)

	// Up to 20% jitter in either direction.
	jitter := time.Duration(float64(wait) * 0.2 * (2*rand.Float64() - 1))
	return max(wait+jitter, 0)
}
