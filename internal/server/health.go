package server

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is the result of probing one dependency.
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker probes a single dependency.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves liveness/readiness endpoints plus any extra
// handlers mounted on it (e.g. /metrics).
type HealthServer struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	version string
	ready   bool
	extra   map[string]http.Handler
	httpSrv *http.Server
}

// NewHealthServer creates a health server reporting the given version.
func NewHealthServer(version string) *HealthServer {
	return &HealthServer{
		checks:  make(map[string]HealthChecker),
		version: version,
		extra:   make(map[string]http.Handler),
	}
}

// RegisterCheck adds a dependency probe.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// Mount attaches an extra handler, e.g. a metrics exposition.
func (s *HealthServer) Mount(pattern string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[pattern] = handler
}

// SetReady marks the server as ready to accept traffic.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Handler returns the health mux.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/livez", s.handleLive)
	s.mu.RLock()
	for pattern, handler := range s.extra {
		mux.Handle(pattern, handler)
	}
	s.mu.RUnlock()
	return mux
}

// ListenAndServe starts the health server; it returns when the server
// stops.
func (s *HealthServer) ListenAndServe(addr string) error {
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the health server.
func (s *HealthServer) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s.mu.RLock()
	checkers := make(map[string]HealthChecker, len(s.checks))
	for name, c := range s.checks {
		checkers[name] = c
	}
	version := s.version
	s.mu.RUnlock()

	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
	}
	for name, checker := range checkers {
		check := checker(ctx)
		check.Name = name
		if check.Status != HealthStatusHealthy {
			resp.Status = HealthStatusUnhealthy
		}
		resp.Checks = append(resp.Checks, check)
	}

	status := http.StatusOK
	if resp.Status != HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (s *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"live": true})
}
