//go:build cgo

package fastembed

import (
	"context"
	"fmt"
	"sync"
	"time"

	fastembed "github.com/anush008/fastembed-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/domain"
	"github.com/kailas-cloud/makan/internal/metrics"
)

var models = map[string]fastembed.EmbeddingModel{
	"fast-bge-small-en-v1.5": fastembed.BGESmallENV15,
	"fast-bge-small-en":      fastembed.BGESmallEN,
	"fast-bge-base-en-v1.5":  fastembed.BGEBaseENV15,
	"fast-bge-base-en":       fastembed.BGEBaseEN,
	"fast-bge-small-zh-v1.5": fastembed.BGESmallZH,
	"fast-all-MiniLM-L6-v2":  fastembed.AllMiniLML6V2,
}

// Embedder wraps a loaded fastembed model. Documents and queries go through the same
// path so both land in one embedding space.
type Embedder struct {
	mu        sync.RWMutex
	model     *fastembed.FlagEmbedding
	name      string
	dimension int
	batchSize int
	logger    *zap.Logger
}

// New downloads (on first use) and loads the model. This is the slow step the worker defers.
func New(cfg Config, logger *zap.Logger) (*Embedder, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	name, dim, err := Resolve(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, cfg.Model)
	}

	showProgress := false
	start := time.Now()
	model, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                models[name],
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w: %w", name, domain.ErrEmbeddingProviderError, err)
	}

	logger.Info("Embedding model loaded",
		zap.String("model", name),
		zap.Int("dimensions", dim),
		zap.Duration("duration", time.Since(start)),
	)

	return &Embedder{
		model:     model,
		name:      name,
		dimension: dim,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vecs, err := e.run(ctx, "embed", []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: vecs[0]}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	vecs, err := e.run(ctx, "batch", texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}

func (e *Embedder) run(ctx context.Context, op string, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return nil, fmt.Errorf("model %s is closed: %w", e.name, domain.ErrEmbeddingProviderError)
	}

	start := time.Now()
	vecs, err := e.model.Embed(texts, e.batchSize)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(Provider, e.name, op, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(Provider, e.name, "inference").Inc()
		return nil, fmt.Errorf("fastembed %s: %w: %w", op, domain.ErrEmbeddingProviderError, err)
	}
	if len(vecs) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(Provider, e.name, op, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(Provider, e.name, "count_mismatch").Inc()
		return nil, fmt.Errorf("fastembed returned %d vectors for %d texts: %w",
			len(vecs), len(texts), domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(Provider, e.name, op, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(Provider, e.name, op).Observe(duration.Seconds())
	return vecs, nil
}

// Dimension returns the model's output size.
func (e *Embedder) Dimension() int { return e.dimension }

// Close releases the ONNX session. Safe to call more than once.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}
	err := e.model.Destroy()
	e.model = nil
	if err != nil {
		return fmt.Errorf("destroy model %s: %w", e.name, err)
	}
	return nil
}
