package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/config"
	dbValkey "github.com/kailas-cloud/makan/internal/db/valkey"
	"github.com/kailas-cloud/makan/internal/domain"
	"github.com/kailas-cloud/makan/internal/embeddings/fastembed"
	logpkg "github.com/kailas-cloud/makan/internal/logger"
	"github.com/kailas-cloud/makan/internal/metrics"
	"github.com/kailas-cloud/makan/internal/places"
	"github.com/kailas-cloud/makan/internal/repository/embcache"
	"github.com/kailas-cloud/makan/internal/searchclient"
	chiTransport "github.com/kailas-cloud/makan/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/makan/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/makan/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/makan/internal/usecase/health"
	searchuc "github.com/kailas-cloud/makan/internal/usecase/search"
	"github.com/kailas-cloud/makan/internal/version"
	"github.com/kailas-cloud/makan/internal/worker"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting makan API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	// Explicit registration, no init()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	datasetPath := config.ProjectPath(cfg.Dataset.Path)
	catalog, err := places.LoadFile(datasetPath)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.String("path", datasetPath), zap.Error(err))
	}
	logger.Info("Dataset loaded", zap.String("path", datasetPath), zap.Int("places", catalog.Len()))

	ctx := context.Background()

	var store *dbValkey.Store
	if cfg.Cache.Enabled {
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create embedding cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Embedding cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	client := searchclient.New(
		searchclient.NewSpawner(newModelLoader(cfg, store, logger), logger),
		logger,
	).WithTimeouts(cfg.Search.GenerateTimeout(), cfg.Search.SearchTimeout())

	searchSvc := searchuc.New(client, catalog, searchuc.Config{
		Locales:     cfg.Dataset.Locales,
		DefaultTopK: cfg.Search.DefaultTopK,
		MaxTopK:     cfg.Search.MaxTopK,
	}, logger)
	if err := searchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start search", zap.Error(err))
	}
	defer searchSvc.Close()

	healthSvc := newHealthService(cfg, client, store, logger)
	server := chiTransport.NewServer(searchSvc, catalog, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newModelLoader returns the loader each embedding worker runs on first use.
// Chain: provider -> Cached (optional) -> Instrumented.
func newModelLoader(cfg config.Config, store *dbValkey.Store, logger *zap.Logger) worker.ModelLoader {
	return func(_ context.Context) (domain.Embedder, error) {
		base, model, err := buildProvider(cfg.Embedding, logger)
		if err != nil {
			return nil, err
		}

		embedder := base
		if store != nil {
			embedder = embcache.New(base, store, embcache.Config{
				Model:      cfg.Embedding.Provider + "/" + model,
				TTL:        cfg.Cache.TTL(),
				CacheTotal: metrics.EmbeddingCacheTotal,
			}, logger)
		}

		return embeddinguc.NewInstrumentedEmbedder(
			embedder, cfg.Embedding.Provider, model, cfg.Embedding.BatchSize, logger,
		), nil
	}
}

// buildProvider constructs the base embedder and reports the model name it resolved to.
func buildProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, string, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return newOpenAIEmbedder(cfg, logger), cfg.Model, nil
	default:
		model := cfg.Model
		if model == "" {
			model = fastembed.DefaultModel
		}
		e, err := fastembed.New(fastembed.Config{
			Model:     model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxLength,
			BatchSize: cfg.BatchSize,
		}, logger)
		if err != nil {
			return nil, "", fmt.Errorf("fastembed: %w", err)
		}
		return e, model, nil
	}
}

func newOpenAIEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) *openaiEmb.Embedder {
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})
}

// newHealthService wires optional probes. Nil interfaces (not typed nil pointers) mark
// components that are not configured.
func newHealthService(
	cfg config.Config, client *searchclient.Client, store *dbValkey.Store, logger *zap.Logger,
) *healthuc.Service {
	var cache healthuc.CachePinger
	if store != nil {
		cache = store
	}
	var embedding healthuc.EmbeddingChecker
	if cfg.Embedding.Provider == config.ProviderOpenAI {
		embedding = newOpenAIEmbedder(cfg.Embedding, logger)
	}
	return healthuc.New(client, cache, embedding)
}
