package health

import "context"

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks remote embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// SearchProbe reports the state of the semantic search pipeline.
type SearchProbe interface {
	IsReady() bool
	ModelLoaded(ctx context.Context) (bool, error)
}
