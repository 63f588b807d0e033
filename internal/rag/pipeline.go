// Package rag implements the retrieval pipeline: chunking, embedding,
// storage and grounded answer generation over a vector store.
package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docchat-ai/docchat/internal/chunk"
	"github.com/docchat-ai/docchat/internal/llm"
	"github.com/docchat-ai/docchat/internal/vector"
)

const tracerName = "github.com/docchat-ai/docchat/internal/rag"

// Config tunes the pipeline.
type Config struct {
	// TargetChunkSize is the soft chunk length bound in characters.
	TargetChunkSize int
	// Dimension is the embedding dimension the collection is configured
	// with. Vectors of any other length are a fatal configuration error.
	Dimension uint64
	// TopK is the default number of chunks retrieved per question.
	TopK int
	// Temperature for answer generation.
	Temperature float64
}

// DefaultConfig matches the upstream service defaults:
// text-embedding-3-small vectors and three retrieved chunks per question.
func DefaultConfig() Config {
	return Config{
		TargetChunkSize: chunk.DefaultTargetSize,
		Dimension:       1536,
		TopK:            3,
		Temperature:     0.7,
	}
}

// Pipeline orchestrates ingestion and question answering. Safe for
// concurrent use: all state is the injected clients, which are themselves
// concurrency-safe. Concurrent ingestions of the same document id are not
// excluded and produce duplicate point sets.
type Pipeline struct {
	provider llm.Provider
	store    vector.Repository
	cfg      Config
	tracer   trace.Tracer
}

// New builds a pipeline over the given provider and store. Zero config
// fields fall back to DefaultConfig values.
func New(provider llm.Provider, store vector.Repository, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.TargetChunkSize <= 0 {
		cfg.TargetChunkSize = def.TargetChunkSize
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = def.Dimension
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	return &Pipeline{
		provider: provider,
		store:    store,
		cfg:      cfg,
		tracer:   otel.Tracer(tracerName),
	}
}

// Init performs the one-time store initialization. Called at startup;
// after this the pipeline assumes the collection exists (the adapter
// recovers on its own if it disappears).
func (p *Pipeline) Init(ctx context.Context) error {
	if err := p.store.EnsureCollection(ctx, p.cfg.Dimension); err != nil {
		return &StoreUnavailableError{Op: "ensure collection", Err: err}
	}
	return nil
}

// IngestResult reports a fully successful ingestion.
type IngestResult struct {
	DocumentID      string `json:"documentId"`
	FileName        string `json:"fileName"`
	ChunksProcessed int    `json:"chunksProcessed"`
}

// Ingest chunks the extracted text, embeds each chunk and stores it
// tagged with the document identity. The first failing chunk aborts the
// whole call: there is no partial commit, no resume and no rollback of
// chunks already written, so an aborted ingestion can leave orphaned
// points for this document id.
func (p *Pipeline) Ingest(ctx context.Context, documentID, fileName, text string) (*IngestResult, error) {
	ctx, span := p.tracer.Start(ctx, "rag.Ingest", trace.WithAttributes(
		attribute.String("document.id", documentID),
		attribute.String("document.file_name", fileName),
	))
	defer span.End()

	chunks := chunk.Split(text, p.cfg.TargetChunkSize)
	span.SetAttributes(attribute.Int("document.chunks", len(chunks)))

	for i, chunkText := range chunks {
		vec, err := p.embed(ctx, chunkText)
		if err != nil {
			return nil, &EmbeddingServiceError{
				Stage: fmt.Sprintf("chunk %d/%d of document %s", i+1, len(chunks), documentID),
				Err:   err,
			}
		}

		point := vector.Point{
			// The store constrains point id format, so the id is a fresh
			// UUID; the logical chunk id rides in the payload.
			ID:     uuid.NewString(),
			Vector: vec,
			Payload: vector.ChunkPayload{
				DocumentID:  documentID,
				FileName:    fileName,
				ChunkIndex:  i,
				Text:        chunkText,
				TotalChunks: len(chunks),
				ChunkID:     fmt.Sprintf("%s-chunk-%d", documentID, i),
			},
		}
		if err := p.store.Upsert(ctx, []vector.Point{point}); err != nil {
			return nil, &StoreUnavailableError{
				Op:  fmt.Sprintf("upsert chunk %d/%d of document %s", i+1, len(chunks), documentID),
				Err: err,
			}
		}
	}

	return &IngestResult{
		DocumentID:      documentID,
		FileName:        fileName,
		ChunksProcessed: len(chunks),
	}, nil
}

func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	if uint64(len(vectors[0])) != p.cfg.Dimension {
		return nil, fmt.Errorf("embedding dimension %d does not match configured dimension %d", len(vectors[0]), p.cfg.Dimension)
	}
	return vectors[0], nil
}
