//go:build !cgo

package fastembed

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/domain"
)

// Embedder is a stub for builds without cgo.
type Embedder struct{}

// New always fails without cgo.
func New(_ Config, _ *zap.Logger) (*Embedder, error) {
	return nil, ErrNotAvailable
}

// Embed always fails without cgo.
func (e *Embedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, ErrNotAvailable
}

// BatchEmbed always fails without cgo.
func (e *Embedder) BatchEmbed(_ context.Context, _ []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{}, ErrNotAvailable
}

// Dimension returns 0 without cgo.
func (e *Embedder) Dimension() int { return 0 }

// Close is a no-op without cgo.
func (e *Embedder) Close() error { return nil }
