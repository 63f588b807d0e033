// Package server exposes the ingestion and question-answering pipeline
// over HTTP and provides health and shutdown plumbing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docchat-ai/docchat/internal/extract"
	"github.com/docchat-ai/docchat/internal/observability"
	"github.com/docchat-ai/docchat/internal/rag"
)

// RAG is the part of the pipeline the HTTP layer needs.
type RAG interface {
	Ingest(ctx context.Context, documentID, fileName, text string) (*rag.IngestResult, error)
	Answer(ctx context.Context, query string, opts *rag.AnswerOptions) (*rag.AnswerResult, error)
}

// APIConfig configures the API handler.
type APIConfig struct {
	// MaxUploadBytes caps the request body on uploads.
	MaxUploadBytes int64
}

// APIMetrics are the pipeline counters the handlers maintain.
type APIMetrics struct {
	DocumentsIngested *observability.Counter
	IngestFailures    *observability.Counter
	QuestionsAnswered *observability.Counter
	AnswerFailures    *observability.Counter
	NoContextAnswers  *observability.Counter
	IngestSeconds     *observability.Histogram
	AnswerSeconds     *observability.Histogram
}

// NewAPIMetrics registers the pipeline metrics on a registry.
func NewAPIMetrics(reg *observability.MetricsRegistry) *APIMetrics {
	return &APIMetrics{
		DocumentsIngested: reg.NewCounter("documents_ingested_total", "Documents fully ingested."),
		IngestFailures:    reg.NewCounter("ingest_failures_total", "Ingestions aborted by a failure."),
		QuestionsAnswered: reg.NewCounter("questions_answered_total", "Questions answered, including no-context answers."),
		AnswerFailures:    reg.NewCounter("answer_failures_total", "Questions that failed with an error."),
		NoContextAnswers:  reg.NewCounter("no_context_answers_total", "Questions answered with the fixed no-information response."),
		IngestSeconds:     reg.NewHistogram("ingest_seconds", "Ingestion latency.", nil),
		AnswerSeconds:     reg.NewHistogram("answer_seconds", "Answer latency.", nil),
	}
}

// API handles document upload and question endpoints.
type API struct {
	pipeline   RAG
	extractors map[string]extract.Extractor
	maxUpload  int64
	metrics    *APIMetrics
}

// NewAPI builds the API handler. Uploads are routed to an extractor by
// file extension; .pdf and .txt are supported.
func NewAPI(pipeline RAG, cfg APIConfig, metrics *APIMetrics) *API {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 50 << 20
	}
	return &API{
		pipeline: pipeline,
		extractors: map[string]extract.Extractor{
			".pdf": extract.NewPDF(),
			".txt": extract.NewPlain(),
		},
		maxUpload: maxUpload,
		metrics:   metrics,
	}
}

// Handler returns the API routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", a.handleUpload)
	mux.HandleFunc("POST /api/ask", a.handleAsk)
	mux.HandleFunc("GET /", a.handleRoot)
	return mux
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte("docchat API is running\n"))
}

type uploadResponse struct {
	Success         bool   `json:"success"`
	DocumentID      string `json:"documentId"`
	FileName        string `json:"fileName"`
	ChunksProcessed int    `json:"chunksProcessed"`
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload", "file exceeds the upload size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "upload", "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "upload", "reading upload: "+err.Error())
		return
	}

	fileName := header.Filename
	extractor, ok := a.extractors[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "upload", "unsupported file type")
		return
	}

	text, err := extractor.Extract(data)
	if err != nil {
		a.metrics.IngestFailures.Inc()
		extErr := &rag.ExtractionError{FileName: fileName, Err: err}
		writeError(w, http.StatusUnprocessableEntity, "extraction", extErr.Error())
		return
	}

	documentID := uuid.NewString()
	result, err := a.pipeline.Ingest(r.Context(), documentID, fileName, text)
	if err != nil {
		a.metrics.IngestFailures.Inc()
		writeServiceError(w, "ingestion of "+fileName, err)
		return
	}

	a.metrics.DocumentsIngested.Inc()
	a.metrics.IngestSeconds.ObserveDuration(start)
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:         true,
		DocumentID:      result.DocumentID,
		FileName:        result.FileName,
		ChunksProcessed: result.ChunksProcessed,
	})
}

type askRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
	// DocumentID scopes retrieval to one document when set.
	DocumentID string `json:"documentId,omitempty"`
}

func (a *API) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ask", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "ask", "query is required")
		return
	}

	result, err := a.pipeline.Answer(r.Context(), req.Query, &rag.AnswerOptions{
		TopK:       req.TopK,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		a.metrics.AnswerFailures.Inc()
		writeServiceError(w, "answering the question", err)
		return
	}

	a.metrics.QuestionsAnswered.Inc()
	if result.Answer == rag.NoInformationAnswer {
		a.metrics.NoContextAnswers.Inc()
	}
	a.metrics.AnswerSeconds.ObserveDuration(start)
	writeJSON(w, http.StatusOK, result)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, stage, details string) {
	writeJSON(w, status, errorResponse{Error: "error during " + stage, Details: details})
}

// writeServiceError maps pipeline error kinds to statuses: upstream
// service failures are 502, anything else 500.
func writeServiceError(w http.ResponseWriter, stage string, err error) {
	status := http.StatusInternalServerError
	var (
		embErr   *rag.EmbeddingServiceError
		storeErr *rag.StoreUnavailableError
		genErr   *rag.GenerationServiceError
	)
	if errors.As(err, &embErr) || errors.As(err, &storeErr) || errors.As(err, &genErr) {
		status = http.StatusBadGateway
	}
	writeError(w, status, stage, err.Error())
}
