package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing place.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDataset signals a malformed place dataset.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrWorker wraps an application-level failure reported by the embedding worker.
	ErrWorker = errors.New("embedding worker error")
	// ErrWorkerSpawn signals that the embedding worker could not be constructed.
	ErrWorkerSpawn = errors.New("embedding worker spawn failed")
	// ErrWorkerCrashed signals that the embedding worker stopped unexpectedly.
	ErrWorkerCrashed = errors.New("embedding worker crashed")
	// ErrWorkerTerminated signals a request against a terminated worker.
	ErrWorkerTerminated = errors.New("embedding worker terminated")

	// ErrTimeout is the parent of all client-side timeouts.
	ErrTimeout = errors.New("timeout")
	// ErrGenerateTimeout signals that embedding generation did not finish in time.
	ErrGenerateTimeout = fmt.Errorf("embedding generation %w", ErrTimeout)
	// ErrSearchTimeout signals that a search request did not finish in time.
	ErrSearchTimeout = fmt.Errorf("search %w", ErrTimeout)
)
