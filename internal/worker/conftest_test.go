package worker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/makan/internal/domain"
)

// conceptEmbedder maps known words onto fixed concept axes and sums them.
// Unknown words contribute nothing.
type conceptEmbedder struct {
	mu     sync.Mutex
	calls  int
	closed bool
	err    error
	panics bool
}

var concepts = map[string][]float32{
	"durian":  {1, 0, 0, 0},
	"dessert": {1, 0, 0, 0},
	"sweet":   {1, 0, 0, 0},
	"chendol": {1, 0, 0, 0},
	"chicken": {0, 1, 0, 0},
	"rice":    {0, 1, 0, 0},
	"hawker":  {0, 0, 1, 0},
	"coffee":  {0, 0, 0, 1},
}

func (e *conceptEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	e.calls++
	panics, err := e.panics, e.err
	e.mu.Unlock()
	if panics {
		panic("onnx session exploded")
	}
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	vec := make([]float32, 4)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		for i, x := range concepts[word] {
			vec[i] += x
		}
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

func (e *conceptEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *conceptEmbedder) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func loaderFor(m domain.Embedder, loads *int) ModelLoader {
	return func(_ context.Context) (domain.Embedder, error) {
		if loads != nil {
			*loads++
		}
		return m, nil
	}
}

func spawnWorker(t *testing.T, loader ModelLoader) *Worker {
	t.Helper()
	w, err := Spawn(loader, nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	t.Cleanup(w.Terminate)
	return w
}

func post(t *testing.T, w *Worker, req Request) {
	t.Helper()
	if err := w.Post(req); err != nil {
		t.Fatalf("Post(%s): %v", req.Type, err)
	}
}

func recv(t *testing.T, w *Worker) Response {
	t.Helper()
	select {
	case resp, ok := <-w.Messages():
		if !ok {
			t.Fatal("message stream closed")
		}
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker response")
	}
	return Response{}
}

func foodDocs() []domain.SearchableDocument {
	return []domain.SearchableDocument{
		{ID: "a", Description: "durian dessert"},
		{ID: "b", Description: "chicken rice hawker"},
	}
}
