package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// RetryConfig configures the optional retry wrapper. The retrieval
// pipeline never retries on its own; callers opt in at construction time.
type RetryConfig struct {
	MaxRetries int           // additional attempts after the first (0 = off)
	RetryDelay time.Duration // initial backoff, doubled per attempt
	MaxDelay   time.Duration // backoff cap
	Timeout    time.Duration // per-attempt timeout
}

// DefaultRetryConfig returns conservative defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    60 * time.Second,
	}
}

type retryProvider struct {
	inner  Provider
	config *RetryConfig
}

// WithRetry wraps a provider with per-attempt timeouts and exponential
// backoff on transient failures.
func WithRetry(inner Provider, config *RetryConfig) Provider {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 30 * time.Second
	}
	return &retryProvider{inner: inner, config: config}
}

func (r *retryProvider) Name() string { return r.inner.Name() }

func (r *retryProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	var resp *Response
	err := r.attempt(ctx, func(attemptCtx context.Context) error {
		var innerErr error
		resp, innerErr = r.inner.Complete(attemptCtx, prompt, opts)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *retryProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := r.attempt(ctx, func(attemptCtx context.Context) error {
		var innerErr error
		vectors, innerErr = r.inner.Embed(attemptCtx, texts)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (r *retryProvider) attempt(ctx context.Context, call func(context.Context) error) error {
	var lastErr error
	delay := r.config.RetryDelay

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > r.config.MaxDelay {
				delay = r.config.MaxDelay
			}
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		}
		err := call(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", r.config.MaxRetries, lastErr)
}

// isRetryable reports whether an error is worth another attempt: timeouts,
// rate limiting and server-side failures are; client errors are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") {
		return true
	}
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	for _, code := range []string{"400", "401", "403", "404"} {
		if strings.Contains(msg, code) {
			return false
		}
	}
	return true
}
