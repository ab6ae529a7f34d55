package embeddings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/sitechat/pkg/metrics"
	"github.com/mikeboe/sitechat/pkg/retry"
	"golang.org/x/time/rate"
)

// Retrying retries transient embedding failures under a retry.Policy and
// optionally paces requests.
type Retrying struct {
	next    Embedder
	policy  retry.Policy
	limiter *rate.Limiter
	logger  *slog.Logger
}

type RetryingOption func(*Retrying)

func WithLogger(logger *slog.Logger) RetryingOption {
	return func(r *Retrying) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRateLimit caps embedding calls at rps per second. Zero disables pacing.
func WithRateLimit(rps float64) RetryingOption {
	return func(r *Retrying) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func NewRetrying(next Embedder, policy retry.Policy, opts ...RetryingOption) *Retrying {
	if policy.Retryable == nil {
		policy.Retryable = IsTransient
	}
	r := &Retrying{next: next, policy: policy, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Dimension() int {
	return r.next.Dimension()
}

// Policy returns the retry policy, so other provider calls can share it.
func (r *Retrying) Policy() retry.Policy {
	return r.policy
}

func (r *Retrying) EmbedText(ctx context.Context, text string) ([]float32, error) {
	policy := r.policy
	userHook := policy.OnRetry
	policy.OnRetry = func(next int, err error) {
		metrics.Get().EmbeddingRetries.Inc()
		r.logger.Warn("Retrying embedding", "attempt", next, "max_attempts", policy.MaxAttempts, "delay", policy.Delay, "error", err)
		if userHook != nil {
			userHook(next, err)
		}
	}

	vec, err := retry.Do(ctx, policy, func(ctx context.Context) ([]float32, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return r.next.EmbedText(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	return vec, nil
}
