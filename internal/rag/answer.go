package rag

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/docchat-ai/docchat/internal/llm"
	"github.com/docchat-ai/docchat/internal/vector"
)

// NoInformationAnswer is returned when retrieval finds nothing. It is a
// successful response, not an error, and no generation call is made.
const NoInformationAnswer = "I couldn't find any relevant information to answer your question. Please try rephrasing or ask a different question."

const systemInstruction = "You are a helpful AI research assistant. You will be given document excerpts as context. Use only the following context to answer the user's question. If the context does not contain the answer, say so politely.\n\nContext: %s"

// Source identifies where part of an answer came from, in the same order
// the chunks were given to the model.
type Source struct {
	FileName   string  `json:"fileName"`
	Similarity float32 `json:"similarity"`
}

// AnswerResult is a grounded answer with its provenance.
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// AnswerOptions tune a single question.
type AnswerOptions struct {
	// TopK overrides the configured number of retrieved chunks when > 0.
	TopK int
	// DocumentID scopes retrieval to one document. Empty means global:
	// the search spans every ingested document, matching the upstream
	// behavior where a question is not tied to the active upload.
	DocumentID string
}

// Answer embeds the query, retrieves the nearest chunks and asks the
// generation service for an answer grounded in exactly those chunks.
func (p *Pipeline) Answer(ctx context.Context, query string, opts *AnswerOptions) (*AnswerResult, error) {
	ctx, span := p.tracer.Start(ctx, "rag.Answer")
	defer span.End()

	topK := p.cfg.TopK
	var filter *vector.SearchFilter
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		if opts.DocumentID != "" {
			filter = &vector.SearchFilter{DocumentID: opts.DocumentID}
		}
	}
	span.SetAttributes(attribute.Int("retrieval.top_k", topK))

	queryVec, err := p.embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingServiceError{Stage: "query", Err: err}
	}

	results, err := p.store.Search(ctx, queryVec, uint64(topK), filter)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "search", Err: err}
	}
	span.SetAttributes(attribute.Int("retrieval.hits", len(results)))

	if len(results) == 0 {
		return &AnswerResult{Answer: NoInformationAnswer, Sources: []Source{}}, nil
	}

	texts := make([]string, len(results))
	sources := make([]Source, len(results))
	for i, r := range results {
		texts[i] = r.Payload.Text
		sources[i] = Source{FileName: r.Payload.FileName, Similarity: r.Score}
	}
	contextBlock := strings.Join(texts, "\n\n")

	temp := p.cfg.Temperature
	resp, err := p.provider.Complete(ctx, &llm.Prompt{
		SystemPrompt: fmt.Sprintf(systemInstruction, contextBlock),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: query}},
	}, &llm.RequestOptions{Temperature: &temp})
	if err != nil {
		return nil, &GenerationServiceError{Err: err}
	}

	return &AnswerResult{Answer: resp.Content, Sources: sources}, nil
}
