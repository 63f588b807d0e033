// Package config loads application configuration from file and
// environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type LLMConfig struct {
	Provider          string  `mapstructure:"provider"`
	Model             string  `mapstructure:"model"`
	EmbedModel        string  `mapstructure:"embed_model"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	Temperature       float64 `mapstructure:"temperature"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	MaxRetries        int     `mapstructure:"max_retries"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

type IngestConfig struct {
	TargetChunkSize int   `mapstructure:"target_chunk_size"`
	MaxUploadBytes  int64 `mapstructure:"max_upload_bytes"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	HealthAddr string `mapstructure:"health_addr"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}
	if c.Vector.Dimension <= 0 {
		warnings = append(warnings, fmt.Sprintf("vector dimension %d is not positive", c.Vector.Dimension))
	}
	if c.Retrieval.TopK <= 0 {
		warnings = append(warnings, fmt.Sprintf("retrieval top_k %d is not positive", c.Retrieval.TopK))
	}
	if c.Ingest.TargetChunkSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("ingest target_chunk_size %d is not positive", c.Ingest.TargetChunkSize))
	}

	return warnings
}

// Load reads configuration from an optional file and the environment.
// Environment variables use the DOCCHAT_ prefix with underscores, e.g.
// DOCCHAT_LLM_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("reading config: %w", err)
			}
			// Missing file is fine; env and defaults carry the config.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4.1-mini")
	v.SetDefault("llm.embed_model", "text-embedding-3-small")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("llm.max_retries", 0)
	v.SetDefault("llm.requests_per_minute", 0)

	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "documents")
	v.SetDefault("vector.dimension", 1536)

	v.SetDefault("ingest.target_chunk_size", 1000)
	v.SetDefault("ingest.max_upload_bytes", 50<<20)

	v.SetDefault("retrieval.top_k", 3)

	v.SetDefault("server.addr", ":5001")
	v.SetDefault("server.health_addr", ":8080")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")
}
