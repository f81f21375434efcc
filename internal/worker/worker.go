// Package worker implements the embedding worker: an actor goroutine that owns the
// embedding model and the document embedding cache, reachable only through messages.
package worker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/domain"
)

const queueSize = 64

// ModelLoader constructs the embedding model. It runs on the worker goroutine the first
// time a message needs the model.
type ModelLoader func(ctx context.Context) (domain.Embedder, error)

// Worker is a single embedding actor. The model and cache fields are touched only by
// the run goroutine.
type Worker struct {
	id     string
	loader ModelLoader
	logger *zap.Logger

	inbox  chan Request
	outbox chan Response
	quit   chan struct{}
	done   chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	mu  sync.Mutex
	err error

	model domain.Embedder
	cache []domain.Embedding
}

// Spawn starts a worker goroutine. The model is not loaded until a message needs it.
func Spawn(loader ModelLoader, logger *zap.Logger) (*Worker, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: model loader is required", domain.ErrWorkerSpawn)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	w := &Worker{
		id:     id,
		loader: loader,
		logger: logger.With(zap.String("worker_id", id)),
		inbox:  make(chan Request, queueSize),
		outbox: make(chan Response, queueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go w.run()

	w.logger.Debug("Embedding worker started")
	return w, nil
}

// ID returns the worker's identifier used in logs.
func (w *Worker) ID() string { return w.id }

// Post enqueues a request. It fails once the worker has been terminated or has crashed.
func (w *Worker) Post(req Request) error {
	select {
	case <-w.quit:
		return domain.ErrWorkerTerminated
	case <-w.done:
		return domain.ErrWorkerTerminated
	default:
	}

	select {
	case w.inbox <- req:
		return nil
	case <-w.quit:
		return domain.ErrWorkerTerminated
	case <-w.done:
		return domain.ErrWorkerTerminated
	}
}

// Messages is the worker's response stream. It is closed when the worker stops.
func (w *Worker) Messages() <-chan Response { return w.outbox }

// Done is closed after the worker has stopped and released the model, before Messages closes.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Err returns the crash cause, or nil if the worker is running or was terminated normally.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Terminate stops the worker. In-flight model calls are cancelled; queued requests are dropped.
func (w *Worker) Terminate() {
	w.stopOnce.Do(func() {
		w.cancel()
		close(w.quit)
	})
}

func (w *Worker) run() {
	defer w.shutdown()

	for {
		select {
		case <-w.quit:
			return
		case req := <-w.inbox:
			if err := w.handleSafe(req); err != nil {
				w.mu.Lock()
				w.err = err
				w.mu.Unlock()
				return
			}
		}
	}
}

func (w *Worker) shutdown() {
	w.cancel()

	if c, ok := w.model.(io.Closer); ok {
		if err := c.Close(); err != nil {
			w.logger.Warn("Failed to release embedding model", zap.Error(err))
		}
	}
	w.model = nil
	w.cache = nil

	if err := w.Err(); err != nil {
		w.logger.Error("Embedding worker crashed", zap.Error(err))
	} else {
		w.logger.Debug("Embedding worker stopped")
	}

	// done first: once the stream closes, every later Post must fail.
	close(w.done)
	close(w.outbox)
}

// handleSafe turns a panic inside a handler into a crash error.
func (w *Worker) handleSafe(req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrWorkerCrashed, r)
		}
	}()
	w.handle(req)
	return nil
}

func (w *Worker) handle(req Request) {
	switch req.Type {
	case TypeGenerateEmbeddings:
		w.generate(req)
	case TypeSearchQuery:
		w.search(req)
	case TypeHealthCheck:
		w.emit(Response{Type: TypeHealthCheckResponse, Ready: w.model != nil, RequestID: req.RequestID})
	default:
		w.fail(req.RequestID, fmt.Errorf("unknown message type %q", req.Type))
	}
}

func (w *Worker) generate(req Request) {
	docs := req.Documents
	if len(docs) == 0 {
		w.cache = []domain.Embedding{}
		w.emit(Response{Type: TypeEmbeddingsReady, Count: 0})
		return
	}

	model, err := w.loadModel()
	if err != nil {
		w.fail(req.RequestID, err)
		return
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text()
	}

	start := time.Now()
	res, err := domain.BatchEmbed(w.ctx, model, texts)
	if err != nil {
		w.fail(req.RequestID, fmt.Errorf("embed documents: %w", err))
		return
	}
	if len(res.Embeddings) != len(docs) {
		w.fail(req.RequestID, fmt.Errorf("embed documents: got %d vectors for %d documents",
			len(res.Embeddings), len(docs)))
		return
	}

	cache := make([]domain.Embedding, len(docs))
	for i, d := range docs {
		cache[i] = domain.Embedding{
			DocumentID: d.ID,
			Vector:     normalize(append([]float32(nil), res.Embeddings[i]...)),
		}
	}
	w.cache = cache

	w.logger.Info("Document embeddings generated",
		zap.Int("documents", len(cache)),
		zap.Duration("duration", time.Since(start)),
	)
	w.emit(Response{Type: TypeEmbeddingsReady, Count: len(cache)})
}

func (w *Worker) search(req Request) {
	if strings.TrimSpace(req.Query) == "" {
		w.fail(req.RequestID, domain.ErrEmptyQuery)
		return
	}
	if len(w.cache) == 0 {
		w.emit(Response{Type: TypeSearchResults, Results: []string{}, RequestID: req.RequestID})
		return
	}

	model, err := w.loadModel()
	if err != nil {
		w.fail(req.RequestID, err)
		return
	}

	res, err := model.Embed(w.ctx, req.Query)
	if err != nil {
		w.fail(req.RequestID, fmt.Errorf("embed query: %w", err))
		return
	}
	query := normalize(append([]float32(nil), res.Embedding...))

	w.emit(Response{
		Type:      TypeSearchResults,
		Results:   rankTopK(query, w.cache, req.TopK),
		RequestID: req.RequestID,
	})
}

// loadModel returns the worker's model, loading it on first use.
// A failed load is not remembered; the next message tries again.
func (w *Worker) loadModel() (domain.Embedder, error) {
	if w.model != nil {
		return w.model, nil
	}

	start := time.Now()
	m, err := w.loader(w.ctx)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("load model: loader returned no model")
	}
	w.model = m

	w.logger.Info("Embedding model loaded", zap.Duration("duration", time.Since(start)))
	return m, nil
}

func (w *Worker) fail(requestID string, err error) {
	w.logger.Warn("Embedding worker request failed",
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	w.emit(Response{Type: TypeError, Error: err.Error(), RequestID: requestID})
}

func (w *Worker) emit(resp Response) {
	select {
	case w.outbox <- resp:
	case <-w.quit:
	}
}
