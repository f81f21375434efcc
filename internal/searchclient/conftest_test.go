package searchclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/makan/internal/domain"
	"github.com/kailas-cloud/makan/internal/worker"
)

const waitFor = 2 * time.Second

// fakeWorker records posted requests and lets tests script the response stream.
type fakeWorker struct {
	mu         sync.Mutex
	out        chan worker.Response
	posts      chan worker.Request
	stopped    bool
	terminated bool
	err        error
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{
		out:   make(chan worker.Response, 16),
		posts: make(chan worker.Request, 16),
	}
}

func (w *fakeWorker) Post(req worker.Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return domain.ErrWorkerTerminated
	}
	w.posts <- req
	return nil
}

func (w *fakeWorker) Messages() <-chan worker.Response { return w.out }

func (w *fakeWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *fakeWorker) Terminate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terminated = true
	w.stopLocked()
}

func (w *fakeWorker) crash(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
	w.stopLocked()
}

func (w *fakeWorker) stopLocked() {
	if !w.stopped {
		w.stopped = true
		close(w.out)
	}
}

func (w *fakeWorker) send(resp worker.Response) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		w.out <- resp
	}
}

func (w *fakeWorker) isTerminated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.terminated
}

func (w *fakeWorker) nextPost(t *testing.T) worker.Request {
	t.Helper()
	select {
	case req := <-w.posts:
		return req
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a posted request")
		return worker.Request{}
	}
}

// fakeSpawner hands out fresh fake workers and counts spawns.
type fakeSpawner struct {
	mu      sync.Mutex
	workers []*fakeWorker
	fails   int
	gate    chan struct{}
}

func (s *fakeSpawner) spawn() (Worker, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return nil, errors.New("onnxruntime not found")
	}
	w := newFakeWorker()
	s.workers = append(s.workers, w)
	return w, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

func (s *fakeSpawner) last() *fakeWorker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workers[len(s.workers)-1]
}

// newReadyClient returns a client whose first worker has already reported EMBEDDINGS_READY.
func newReadyClient(t *testing.T) (*Client, *fakeSpawner, *fakeWorker) {
	t.Helper()
	sp := &fakeSpawner{}
	c := New(sp.spawn, nil)
	t.Cleanup(c.Destroy)

	done := make(chan error, 1)
	go func() { done <- c.GenerateEmbeddings(context.Background(), docs("a", "b")) }()

	w := waitForWorker(t, sp, 1)
	req := w.nextPost(t)
	if req.Type != worker.TypeGenerateEmbeddings {
		t.Fatalf("posted %s, want %s", req.Type, worker.TypeGenerateEmbeddings)
	}
	w.send(worker.Response{Type: worker.TypeEmbeddingsReady, Count: len(req.Documents)})

	if err := await(t, done); err != nil {
		t.Fatalf("GenerateEmbeddings: %v", err)
	}
	return c, sp, w
}

func waitForWorker(t *testing.T, sp *fakeSpawner, n int) *fakeWorker {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for sp.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d spawned workers, got %d", n, sp.count())
		}
		time.Sleep(time.Millisecond)
	}
	return sp.last()
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for result")
		var zero T
		return zero
	}
}

type searchOutcome struct {
	ids []string
	err error
}

func searchAsync(c *Client, query string, topK int) <-chan searchOutcome {
	ch := make(chan searchOutcome, 1)
	go func() {
		ids, err := c.Search(context.Background(), query, topK)
		ch <- searchOutcome{ids: ids, err: err}
	}()
	return ch
}

func docs(ids ...string) []domain.SearchableDocument {
	out := make([]domain.SearchableDocument, len(ids))
	for i, id := range ids {
		out[i] = domain.SearchableDocument{ID: id, Name: id}
	}
	return out
}
