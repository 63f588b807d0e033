package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docchat-ai/docchat/internal/llm"
	"github.com/docchat-ai/docchat/internal/vector"
)

func TestAnswer_EmptyRetrievalSkipsGeneration(t *testing.T) {
	provider := &mockProvider{dim: 3}
	store := &mockStore{} // nothing ingested
	p := newTestPipeline(provider, store)

	result, err := p.Answer(context.Background(), "anything at all?", nil)
	if err != nil {
		t.Fatalf("empty retrieval must not be an error: %v", err)
	}
	if result.Answer != NoInformationAnswer {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected no sources, got %+v", result.Sources)
	}
	if provider.completeCall != 0 {
		t.Errorf("generation called %d times with empty context", provider.completeCall)
	}
}

func TestAnswer_SourcesMatchRetrievalOrder(t *testing.T) {
	provider := &mockProvider{dim: 3, vectors: map[string][]float32{
		"query": {1, 0, 0},
	}}
	store := &mockStore{points: []vector.Point{
		{ID: "p1", Vector: []float32{0.2, 0, 0}, Payload: vector.ChunkPayload{FileName: "low.pdf", Text: "low"}},
		{ID: "p2", Vector: []float32{0.9, 0, 0}, Payload: vector.ChunkPayload{FileName: "high.pdf", Text: "high"}},
		{ID: "p3", Vector: []float32{0.5, 0, 0}, Payload: vector.ChunkPayload{FileName: "mid.pdf", Text: "mid"}},
	}}
	p := newTestPipeline(provider, store)

	var captured *llm.Prompt
	provider.completeFn = func(prompt *llm.Prompt) (*llm.Response, error) {
		captured = prompt
		return &llm.Response{Content: "ok"}, nil
	}

	result, err := p.Answer(context.Background(), "query", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	wantOrder := []string{"high.pdf", "mid.pdf", "low.pdf"}
	if len(result.Sources) != len(wantOrder) {
		t.Fatalf("got %d sources, want %d", len(result.Sources), len(wantOrder))
	}
	for i, want := range wantOrder {
		if result.Sources[i].FileName != want {
			t.Errorf("source %d = %q, want %q", i, result.Sources[i].FileName, want)
		}
	}
	for i := 1; i < len(result.Sources); i++ {
		if result.Sources[i].Similarity > result.Sources[i-1].Similarity {
			t.Error("sources not in descending similarity order")
		}
	}

	// Context block concatenates chunk texts in the same order, separated
	// by blank lines, inside the system instruction.
	if captured == nil {
		t.Fatal("generation prompt not captured")
	}
	if !strings.Contains(captured.SystemPrompt, "high\n\nmid\n\nlow") {
		t.Errorf("context block missing or misordered in %q", captured.SystemPrompt)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != llm.RoleUser || captured.Messages[0].Content != "query" {
		t.Errorf("query must be its own user turn: %+v", captured.Messages)
	}
}

func TestAnswer_TopKBoundsSources(t *testing.T) {
	provider := &mockProvider{dim: 3}
	store := &mockStore{}
	p := newTestPipeline(provider, store)

	for i := 0; i < 5; i++ {
		text := strings.Repeat("x", i+1) + " content."
		if _, err := p.Ingest(context.Background(), "doc", "doc.pdf", text); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	result, err := p.Answer(context.Background(), "content?", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(result.Sources) > 3 {
		t.Errorf("default topK=3 exceeded: %d sources", len(result.Sources))
	}

	result, err = p.Answer(context.Background(), "content?", &AnswerOptions{TopK: 2})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Errorf("topK=2: got %d sources", len(result.Sources))
	}
}

func TestAnswer_GenerationFailure(t *testing.T) {
	genErr := errors.New("503 service unavailable")
	provider := &mockProvider{dim: 3}
	provider.completeFn = func(*llm.Prompt) (*llm.Response, error) { return nil, genErr }
	store := &mockStore{}
	p := newTestPipeline(provider, store)

	if _, err := p.Ingest(context.Background(), "doc", "doc.pdf", "Some content."); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	_, err := p.Answer(context.Background(), "content?", nil)
	var gErr *GenerationServiceError
	if !errors.As(err, &gErr) {
		t.Fatalf("expected GenerationServiceError, got %v", err)
	}
	if !errors.Is(err, genErr) {
		t.Error("cause not preserved")
	}
}

func TestAnswer_QueryEmbeddingFailure(t *testing.T) {
	provider := &mockProvider{dim: 3, embedErr: errors.New("timeout"), embedErrOn: 1}
	store := &mockStore{}
	p := newTestPipeline(provider, store)

	_, err := p.Answer(context.Background(), "question?", nil)
	var embErr *EmbeddingServiceError
	if !errors.As(err, &embErr) {
		t.Fatalf("expected EmbeddingServiceError, got %v", err)
	}
	if embErr.Stage != "query" {
		t.Errorf("Stage=%q, want query", embErr.Stage)
	}
}

func TestAnswer_StoreFailure(t *testing.T) {
	provider := &mockProvider{dim: 3}
	store := &mockStore{searchErr: errors.New("connection refused")}
	p := newTestPipeline(provider, store)

	_, err := p.Answer(context.Background(), "question?", nil)
	var storeErr *StoreUnavailableError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
}

// End-to-end over the in-memory doubles: one small document, one question.
func TestEndToEnd_SingleChunkDocument(t *testing.T) {
	provider := &mockProvider{dim: 3, vectors: map[string][]float32{
		"The cat sat. The dog ran. The bird flew.": {1, 0, 0},
		"What did the cat do?":                     {0.9, 0.1, 0},
	}}
	store := &mockStore{}
	p := New(provider, store, Config{Dimension: 3, TargetChunkSize: 1000})

	ingest, err := p.Ingest(context.Background(), "doc-42", "animals.pdf", "The cat sat. The dog ran. The bird flew.")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ingest.ChunksProcessed != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", ingest.ChunksProcessed)
	}

	var captured *llm.Prompt
	provider.completeFn = func(prompt *llm.Prompt) (*llm.Response, error) {
		captured = prompt
		return &llm.Response{Content: "The cat sat."}, nil
	}

	result, err := p.Answer(context.Background(), "What did the cat do?", nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if result.Answer == "" {
		t.Error("empty answer")
	}
	if len(result.Sources) != 1 || result.Sources[0].FileName != "animals.pdf" {
		t.Errorf("unexpected sources: %+v", result.Sources)
	}
	if captured == nil || !strings.Contains(captured.SystemPrompt, "The cat sat. The dog ran. The bird flew.") {
		t.Error("context block does not contain the ingested chunk")
	}
}
