package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

// rateLimited waits on a shared limiter before every Send.
type rateLimited struct {
	Provider
	limiter *rate.Limiter
}

// RateLimited wraps p so each Send first waits for a token from limiter.
// A nil limiter returns p unchanged.
func RateLimited(p Provider, limiter *rate.Limiter) Provider {
	if limiter == nil {
		return p
	}
	return &rateLimited{Provider: p, limiter: limiter}
}

// PerMinute returns a limiter allowing n requests per minute with a burst
// of one, or nil when n is not positive.
func PerMinute(n int) *rate.Limiter {
	return NewLimiter(n, 1)
}

// NewLimiter allows perMinute requests per minute with the given burst. A
// burst below one is raised to one; a non-positive rate returns nil.
func NewLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
}

// Throttled is a Provider whose sends are paced. Callers that put a
// deadline on each call should Wait first and then send through Unwrap, so
// time spent queued does not count against the call.
type Throttled interface {
	Provider
	Wait(ctx context.Context) error
	Unwrap() Provider
}

func (r *rateLimited) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", r.Name(), err)
	}
	return nil
}

func (r *rateLimited) Unwrap() Provider { return r.Provider }

func (r *rateLimited) Send(ctx context.Context, system string, messages []Message, defs []tools.ToolDef) (*models.Turn, error) {
	if err := r.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.Send(ctx, system, messages, defs)
}
