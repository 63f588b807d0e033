package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docchat-ai/docchat/internal/config"
	"github.com/docchat-ai/docchat/internal/llm"
	"github.com/docchat-ai/docchat/internal/llm/openai"
	"github.com/docchat-ai/docchat/internal/observability"
	"github.com/docchat-ai/docchat/internal/rag"
	"github.com/docchat-ai/docchat/internal/server"
	"github.com/docchat-ai/docchat/internal/vector/qdrant"
)

const version = "0.1.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "Upload documents and ask questions answered from their content",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "configs/docchat.yaml", "Config file path")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-8s %s\n", name, url)
			}
			fmt.Println("  custom   (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println()
			fmt.Println("Configure in docchat.yaml or via environment:")
			fmt.Println("  DOCCHAT_LLM_PROVIDER=openai")
			fmt.Println("  DOCCHAT_LLM_API_KEY=sk-...")
		},
	}

	rootCmd.AddCommand(serveCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(configPath string) error {
	// A local .env is optional; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	tracerProvider, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "docchat",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	factory := llm.NewFactory()
	registerProviders(factory)
	provider, err := factory.Create(llm.ProviderConfig{
		Provider:          providerName(cfg.LLM.Provider),
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		EmbedModel:        cfg.LLM.EmbedModel,
		BaseURL:           baseURL(cfg.LLM.Provider, cfg.LLM.BaseURL),
		Timeout:           time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.LLM.MaxRetries,
		RetryDelay:        time.Second,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	store, err := qdrant.New(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	if err != nil {
		return fmt.Errorf("connect vector store: %w", err)
	}

	pipeline := rag.New(provider, store, rag.Config{
		TargetChunkSize: cfg.Ingest.TargetChunkSize,
		Dimension:       uint64(cfg.Vector.Dimension),
		TopK:            cfg.Retrieval.TopK,
		Temperature:     cfg.LLM.Temperature,
	})

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = pipeline.Init(initCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("init collection %q: %w", cfg.Vector.Collection, err)
	}

	registry := observability.NewMetricsRegistry()
	api := server.NewAPI(pipeline, server.APIConfig{MaxUploadBytes: cfg.Ingest.MaxUploadBytes}, server.NewAPIMetrics(registry))

	health := server.NewHealthServer(version)
	health.Mount("/metrics", registry.Handler())
	health.RegisterCheck("qdrant", func(ctx context.Context) server.HealthCheck {
		if err := store.Ping(ctx); err != nil {
			return server.HealthCheck{Status: server.HealthStatusUnhealthy, Message: err.Error()}
		}
		return server.HealthCheck{Status: server.HealthStatusHealthy}
	})

	apiSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	shutdown := server.NewShutdownHandler(30 * time.Second)
	shutdown.RegisterHook("api-server", 10, apiSrv.Shutdown)
	shutdown.RegisterHook("health-server", 20, health.Shutdown)
	shutdown.RegisterHook("tracing", 80, tracerProvider.Shutdown)
	shutdown.RegisterHook("vector-store", 90, func(ctx context.Context) error {
		return store.Close()
	})
	shutdown.Start()

	go func() {
		if err := health.ListenAndServe(cfg.Server.HealthAddr); err != nil {
			fmt.Fprintf(os.Stderr, "health server: %v\n", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("docchat listening on %s (health on %s)\n", cfg.Server.Addr, cfg.Server.HealthAddr)
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	health.SetReady(true)

	select {
	case err := <-errCh:
		shutdown.Shutdown()
		shutdown.Wait()
		return err
	case <-waitDone(shutdown):
		return nil
	}
}

func waitDone(s *server.ShutdownHandler) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	return done
}

func registerProviders(f *llm.Factory) {
	ctor := func(cfg llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(cfg.APIKey, cfg.Model, cfg.EmbedModel, cfg.BaseURL, cfg.Timeout), nil
	}
	f.Register("openai", ctor)
	f.Register("custom", ctor)
}

// providerName collapses every OpenAI-compatible preset onto the openai
// constructor; baseURL selects the actual endpoint.
func providerName(name string) string {
	if _, ok := llm.KnownProviders[name]; ok {
		return "openai"
	}
	return name
}

func baseURL(provider, override string) string {
	if override != "" {
		return override
	}
	return llm.KnownProviders[provider]
}
