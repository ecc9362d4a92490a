package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"quoteticker/internal/provider"
)

// Provider wraps a provider.Provider and gates calls through a token bucket.
// Concurrent calls wait for a token, or return early if the context is canceled.
type Provider struct {
	P provider.Provider
	L *rate.Limiter
}

// PerMinute allows n fetches per minute with the given burst.
func PerMinute(p provider.Provider, n, burst int) *Provider {
	if burst <= 0 { burst = 1 }
	limit := rate.Inf
	if n > 0 { limit = rate.Limit(float64(n) / 60.0) }
	return &Provider{P: p, L: rate.NewLimiter(limit, burst)}
}

// MinInterval enforces at least d between fetches.
func MinInterval(p provider.Provider, d time.Duration) *Provider {
	return &Provider{P: p, L: rate.NewLimiter(rate.Every(d), 1)}
}

func (r *Provider) Name() string { return r.P.Name() }

func (r *Provider) Fetch(ctx context.Context) (provider.Update, error) {
	if r.L != nil {
		if err := r.L.Wait(ctx); err != nil { return provider.Update{}, err }
	}
	return r.P.Fetch(ctx)
}
