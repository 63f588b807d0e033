package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedProvider struct {
	name       string
	errs       []error // error per call, nil = success
	calls      int
	embedCalls int
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.errs) && s.errs[s.calls] != nil {
		return nil, s.errs[s.calls]
	}
	return &Response{Content: "ok"}, nil
}

func (s *scriptedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	defer func() { s.embedCalls++ }()
	if s.embedCalls < len(s.errs) && s.errs[s.embedCalls] != nil {
		return nil, s.errs[s.embedCalls]
	}
	return [][]float32{{1}}, nil
}

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	inner := &scriptedProvider{name: "test"}
	p := WithRetry(inner, fastRetryConfig(3))

	resp, err := p.Complete(context.Background(), &Prompt{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" || inner.calls != 1 {
		t.Errorf("resp=%+v calls=%d", resp, inner.calls)
	}
}

func TestRetry_RetriesTransientThenSucceeds(t *testing.T) {
	inner := &scriptedProvider{errs: []error{errors.New("503 Service Unavailable"), nil}}
	p := WithRetry(inner, fastRetryConfig(3))

	if _, err := p.Complete(context.Background(), &Prompt{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	authErr := errors.New("401 Unauthorized")
	inner := &scriptedProvider{errs: []error{authErr, nil}}
	p := WithRetry(inner, fastRetryConfig(3))

	_, err := p.Embed(context.Background(), []string{"x"})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if inner.embedCalls != 1 {
		t.Errorf("embedCalls = %d, want 1", inner.embedCalls)
	}
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		errors.New("429 Too Many Requests"),
		errors.New("429 Too Many Requests"),
		errors.New("429 Too Many Requests"),
	}}
	p := WithRetry(inner, fastRetryConfig(2))

	_, err := p.Complete(context.Background(), &Prompt{}, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetry_ContextCancelStops(t *testing.T) {
	inner := &scriptedProvider{errs: []error{errors.New("500"), errors.New("500")}}
	p := WithRetry(inner, &RetryConfig{MaxRetries: 5, RetryDelay: time.Hour, MaxDelay: time.Hour, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Complete(ctx, &Prompt{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate_limit", errors.New("429 Too Many Requests"), true},
		{"server", errors.New("502 Bad Gateway"), true},
		{"auth", errors.New("401 Unauthorized"), false},
		{"bad_request", errors.New("400 Bad Request"), false},
		{"timeout", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"unknown", errors.New("something odd"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
