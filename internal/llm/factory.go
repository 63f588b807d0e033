package llm

import (
	"fmt"
	"time"
)

// ProviderConfig holds everything needed to construct a provider.
type ProviderConfig struct {
	Provider   string // "openai", "groq", "ollama", "custom"
	APIKey     string
	Model      string // generation model
	EmbedModel string // embedding model; fixes the vector dimension
	BaseURL    string // override for self-hosted / custom endpoints

	// Per-request timeout applied to every external call.
	Timeout time.Duration
	// MaxRetries enables the retry wrapper when > 0. The retrieval
	// pipeline itself never retries; this is a caller-level policy.
	MaxRetries int
	RetryDelay time.Duration

	// RequestsPerMinute caps outbound calls (0 = unlimited).
	RequestsPerMinute int
}

// DefaultProviderConfig returns a config with sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout:    60 * time.Second,
		RetryDelay: 1 * time.Second,
	}
}

// ProviderConstructor builds a Provider from config.
type ProviderConstructor func(cfg ProviderConfig) (Provider, error)

// Factory creates Provider instances from config.
type Factory struct {
	constructors map[string]ProviderConstructor
}

// NewFactory creates an empty factory; constructors register themselves
// via Register.
func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]ProviderConstructor)}
}

// Register adds a provider constructor under the given name.
func (f *Factory) Register(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// Create builds a Provider from config, wrapped with rate limiting and
// retry when configured.
func (f *Factory) Create(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("llm provider not configured")
	}

	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (registered: %v)", cfg.Provider, f.names())
	}

	provider, err := ctor(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		provider = WithRateLimit(provider, cfg.RequestsPerMinute)
	}
	if cfg.MaxRetries > 0 {
		provider = WithRetry(provider, &RetryConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Timeout:    cfg.Timeout,
		})
	}
	return provider, nil
}

func (f *Factory) names() []string {
	out := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		out = append(out, k)
	}
	return out
}

// KnownProviders maps provider presets to their default base URLs. All of
// them speak the OpenAI wire format; "custom" takes any base_url.
var KnownProviders = map[string]string{
	"openai": "https://api.openai.com/v1",
	"groq":   "https://api.groq.com/openai/v1",
	"ollama": "http://localhost:11434/v1",
}
