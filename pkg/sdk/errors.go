package makan

import (
	"errors"

	"github.com/kailas-cloud/makan/internal/domain"
	searchuc "github.com/kailas-cloud/makan/internal/usecase/search"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidDataset         = domain.ErrInvalidDataset
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrTimeout                = domain.ErrTimeout
	ErrGenerateTimeout        = domain.ErrGenerateTimeout
	ErrSearchTimeout          = domain.ErrSearchTimeout
	ErrWorkerCrashed          = domain.ErrWorkerCrashed
	ErrWorkerTerminated       = domain.ErrWorkerTerminated
	ErrClosed                 = searchuc.ErrClosed
)

var (
	// ErrEmbedderRequired is returned by New without WithEmbedder.
	ErrEmbedderRequired = errors.New("makan: embedder required (use WithEmbedder)")
	// ErrNotIndexed is returned by Search before the first Index call.
	ErrNotIndexed = errors.New("makan: no places indexed")
)
