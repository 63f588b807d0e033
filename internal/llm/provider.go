// Package llm abstracts the external language-model services used for
// answer generation and text embedding.
package llm

import "context"

// Provider is the interface all LLM backends must implement. The same
// provider serves both ingestion-time and query-time embedding so vectors
// stay comparable.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns embedding vectors for the given texts, one per input,
	// in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider identifier (e.g. "openai").
	Name() string
}
