package server

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// ShutdownHook is a named cleanup step. Lower priority runs first.
type ShutdownHook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// ShutdownHandler runs registered hooks in priority order when a
// termination signal arrives or Shutdown is called.
type ShutdownHandler struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration

	triggerOnce sync.Once
	triggerCh   chan struct{}
	doneCh      chan struct{}
}

// NewShutdownHandler creates a handler with the given overall timeout
// (30s when zero).
func NewShutdownHandler(timeout time.Duration) *ShutdownHandler {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownHandler{
		timeout:   timeout,
		triggerCh: make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// RegisterHook adds a shutdown hook.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, ShutdownHook{Name: name, Priority: priority, Fn: fn})
	sort.SliceStable(s.hooks, func(i, j int) bool {
		return s.hooks[i].Priority < s.hooks[j].Priority
	})
}

// Start begins listening for SIGTERM/SIGINT.
func (s *ShutdownHandler) Start() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case <-sigCh:
		case <-s.triggerCh:
		}
		signal.Stop(sigCh)
		s.run()
	}()
}

// Shutdown triggers shutdown manually.
func (s *ShutdownHandler) Shutdown() {
	s.triggerOnce.Do(func() { close(s.triggerCh) })
}

// Wait blocks until all hooks have run.
func (s *ShutdownHandler) Wait() {
	<-s.doneCh
}

func (s *ShutdownHandler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, hook := range hooks {
		// A failing hook must not block the remaining cleanup.
		_ = hook.Fn(ctx)
	}
	close(s.doneCh)
}
