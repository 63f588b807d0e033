package rag

import "fmt"

// ExtractionError means text could not be pulled out of an uploaded file.
// Fatal to that one ingestion.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting text from %q: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingServiceError means the embedding service failed (transport,
// auth or rate limit). Stage records what was being embedded. Aborts the
// enclosing ingest or answer call; never retried here.
type EmbeddingServiceError struct {
	Stage string
	Err   error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Stage, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// StoreUnavailableError means the vector store could not be reached or
// rejected an operation. Op names the failing store call.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// GenerationServiceError means the answer-generation service failed.
// Fatal to the current answer call.
type GenerationServiceError struct {
	Err error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generating answer: %v", e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }
