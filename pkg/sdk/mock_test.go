package makan

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

// wordEmbedder scores texts on two axes: sweet things and rice dishes.
type wordEmbedder struct {
	calls atomic.Int32
}

func (e *wordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls.Add(1)
	vec := []float32{0, 0}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		switch strings.Trim(word, ".,") {
		case "durian", "dessert", "sweet":
			vec[0]++
		case "chicken", "rice", "hawker":
			vec[1]++
		}
	}
	return EmbeddingResult{Embedding: vec}, nil
}

// batchWordEmbedder adds a native batch path and counts its use.
type batchWordEmbedder struct {
	wordEmbedder
	batches atomic.Int32
}

func (e *batchWordEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	e.batches.Add(1)
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		r, _ := e.wordEmbedder.Embed(ctx, t)
		out.Embeddings[i] = r.Embedding
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) (EmbeddingResult, error) {
	return EmbeddingResult{}, errors.New("provider down")
}

// checkedEmbedder reports a fixed health check result.
type checkedEmbedder struct {
	wordEmbedder
	healthErr error
}

func (e *checkedEmbedder) HealthCheck(context.Context) error { return e.healthErr }

func testPlaces() []Place {
	return []Place{
		{
			ID:           "tian-tian",
			Name:         "Tian Tian Chicken Rice",
			Category:     "hawker",
			Descriptions: map[string]string{"en": "Poached chicken over fragrant rice."},
		},
		{
			ID:           "durian-mpire",
			Name:         "Durian Mpire",
			Category:     "dessert",
			Descriptions: map[string]string{"en": "Sweet durian pancakes.", "zh": "榴莲甜品"},
		},
	}
}
