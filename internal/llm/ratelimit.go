package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitProvider throttles outbound provider calls. Document ingestion
// embeds one chunk per call, so an unthrottled upload can burn through an
// API quota quickly.
type rateLimitProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps a provider so it makes at most requestsPerMinute
// calls per minute, spread evenly. Wait blocks until the limiter grants a
// slot or the context is cancelled.
func WithRateLimit(inner Provider, requestsPerMinute int) Provider {
	limit := rate.Limit(float64(requestsPerMinute) / 60.0)
	return &rateLimitProvider{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (r *rateLimitProvider) Name() string { return r.inner.Name() }

func (r *rateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, prompt, opts)
}

func (r *rateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}
