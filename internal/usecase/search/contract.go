package search

import (
	"context"

	"github.com/kailas-cloud/makan/internal/domain"
)

// SemanticClient is the embedding worker coordinator.
type SemanticClient interface {
	GenerateEmbeddings(ctx context.Context, docs []domain.SearchableDocument) error
	Search(ctx context.Context, query string, topK int) ([]string, error)
	IsReady() bool
	Destroy()
}

// Catalog provides the places to index and resolves ranked IDs back to places.
type Catalog interface {
	All() []domain.Place
	Resolve(ids []string) []domain.Place
}
