// Package searchclient coordinates the embedding worker: it owns the worker's lifecycle,
// correlates requests with responses, and enforces per-call timeouts.
package searchclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/domain"
	"github.com/kailas-cloud/makan/internal/metrics"
	"github.com/kailas-cloud/makan/internal/worker"
)

const (
	// DefaultGenerateTimeout covers model download, model load and the full embedding pass.
	DefaultGenerateTimeout = 120 * time.Second
	// DefaultSearchTimeout bounds a single search round trip.
	DefaultSearchTimeout = 10 * time.Second
	// DefaultTopK is used when a search asks for a non-positive number of results.
	DefaultTopK = 10
)

// initCall is the in-flight or completed construction of a worker.
type initCall struct {
	done chan struct{}
	w    Worker
	err  error
}

// readyWaiter receives the outcome of a GENERATE_EMBEDDINGS posted to owner.
type readyWaiter struct {
	ch    chan error
	owner Worker
}

// Client is the single point of coordination between callers and the embedding worker.
// The worker is spawned lazily on first use and respawned transparently after Destroy.
type Client struct {
	spawn           Spawner
	logger          *zap.Logger
	generateTimeout time.Duration
	searchTimeout   time.Duration

	mu        sync.Mutex
	worker    Worker
	init      *initCall
	ready     bool
	destroyed bool
	seeded    bool // the current worker has received embeddings
	waiter    *readyWaiter

	pending *pendingTable
}

// New creates a client. No worker is spawned until the first call that needs one.
func New(spawn Spawner, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		spawn:           spawn,
		logger:          logger,
		generateTimeout: DefaultGenerateTimeout,
		searchTimeout:   DefaultSearchTimeout,
		pending:         newPendingTable(),
	}
}

// WithTimeouts overrides the generation and search timeouts. Non-positive values keep the defaults.
func (c *Client) WithTimeouts(generate, search time.Duration) *Client {
	if generate > 0 {
		c.generateTimeout = generate
	}
	if search > 0 {
		c.searchTimeout = search
	}
	return c
}

// IsReady reports whether embeddings have been generated at least once.
func (c *Client) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// GenerateEmbeddings asks the worker to embed docs, replacing its cache, and waits for
// EMBEDDINGS_READY. Overlapping calls share a single waiter slot: the latest call owns it,
// and an earlier caller only learns the outcome through its timeout.
func (c *Client) GenerateEmbeddings(ctx context.Context, docs []domain.SearchableDocument) error {
	start := time.Now()

	w, err := c.ensureWorker()
	if err != nil {
		return fmt.Errorf("ensure worker: %w", err)
	}

	waiter := &readyWaiter{ch: make(chan error, 1), owner: w}
	c.mu.Lock()
	c.waiter = waiter
	c.mu.Unlock()

	if err := w.Post(worker.GenerateEmbeddings(docs)); err != nil {
		c.clearWaiter(waiter)
		return fmt.Errorf("post %s: %w", worker.TypeGenerateEmbeddings, err)
	}

	timer := time.NewTimer(c.generateTimeout)
	defer timer.Stop()

	select {
	case err := <-waiter.ch:
		if err != nil {
			metrics.GenerationDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			return fmt.Errorf("generate embeddings: %w", err)
		}
		metrics.GenerationDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		return nil
	case <-timer.C:
		c.clearWaiter(waiter)
		metrics.GenerationDuration.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		if c.IsReady() {
			c.logger.Warn("Embedding generation timed out after the client became ready",
				zap.Int("documents", len(docs)),
				zap.Duration("timeout", c.generateTimeout),
			)
			return nil
		}
		return domain.ErrGenerateTimeout
	case <-ctx.Done():
		c.clearWaiter(waiter)
		return fmt.Errorf("generate embeddings: %w", ctx.Err())
	}
}

// Search returns the IDs of the topK documents most similar to query, most similar first.
// Before embeddings are ready it returns an empty slice without contacting the worker.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]string, error) {
	if !c.IsReady() {
		c.logger.Warn("Semantic search requested before embeddings are ready")
		metrics.SearchRequestsTotal.WithLabelValues("not_ready").Inc()
		return []string{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	w, err := c.ensureWorker()
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ensure worker: %w", err)
	}
	if !c.isSeeded(w) {
		c.logger.Warn("Embedding worker was restarted and holds no embeddings; regenerate to restore results")
	}

	start := time.Now()
	id := uuid.NewString()
	resp, err := c.roundTrip(ctx, w, worker.SearchQuery(id, query, topK), c.searchTimeout, domain.ErrSearchTimeout)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrTimeout) {
			outcome = "timeout"
		}
		metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
		return nil, fmt.Errorf("search: %w", err)
	}
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()

	results := resp.Results
	if results == nil {
		results = []string{}
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ModelLoaded probes the live worker for a loaded model. It never spawns a worker:
// with none running the answer is false.
func (c *Client) ModelLoaded(ctx context.Context) (bool, error) {
	c.mu.Lock()
	w, destroyed := c.worker, c.destroyed
	c.mu.Unlock()
	if w == nil || destroyed {
		return false, nil
	}

	id := uuid.NewString()
	resp, err := c.roundTrip(ctx, w, worker.HealthCheck(id), c.searchTimeout,
		fmt.Errorf("health check %w", domain.ErrTimeout))
	if err != nil {
		return false, fmt.Errorf("health check: %w", err)
	}
	return resp.Ready, nil
}

// Destroy terminates the worker. The ready flag survives; the next call spawns a new
// worker whose cache is empty until GenerateEmbeddings runs again.
func (c *Client) Destroy() {
	c.mu.Lock()
	w := c.worker
	c.worker = nil
	c.init = nil
	c.destroyed = true
	c.seeded = false
	c.mu.Unlock()

	if w != nil {
		w.Terminate()
		c.logger.Info("Embedding worker destroyed")
	}
}

func (c *Client) roundTrip(
	ctx context.Context, w Worker, req worker.Request, timeout time.Duration, timeoutErr error,
) (worker.Response, error) {
	replies, err := c.pending.register(req.RequestID, w)
	if err != nil {
		return worker.Response{}, err
	}

	if err := w.Post(req); err != nil {
		c.pending.remove(req.RequestID)
		return worker.Response{}, fmt.Errorf("post %s: %w", req.Type, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-replies:
		return r.resp, r.err
	case <-timer.C:
		c.pending.remove(req.RequestID)
		return worker.Response{}, timeoutErr
	case <-ctx.Done():
		c.pending.remove(req.RequestID)
		return worker.Response{}, ctx.Err()
	}
}

// ensureWorker returns the live worker, constructing one after Destroy or a crash.
func (c *Client) ensureWorker() (Worker, error) {
	c.mu.Lock()
	w, destroyed := c.worker, c.destroyed
	c.mu.Unlock()

	if destroyed || w == nil {
		return c.initWorker()
	}
	return w, nil
}

// initWorker constructs a worker, or joins a construction already in flight.
// It completes as soon as the worker exists; the model loads later, inside the worker.
func (c *Client) initWorker() (Worker, error) {
	c.mu.Lock()
	if call := c.init; call != nil && !c.destroyed {
		c.mu.Unlock()
		<-call.done
		return call.w, call.err
	}
	call := &initCall{done: make(chan struct{})}
	c.init = call
	c.mu.Unlock()

	w, err := c.spawn()

	c.mu.Lock()
	switch {
	case err != nil:
		if c.init == call {
			c.init = nil
		}
		if !errors.Is(err, domain.ErrWorkerSpawn) {
			err = fmt.Errorf("%w: %w", domain.ErrWorkerSpawn, err)
		}
		call.err = err
		metrics.WorkerSpawnsTotal.WithLabelValues("error").Inc()
		c.logger.Error("Failed to spawn embedding worker", zap.Error(err))
	case c.init != call:
		// Destroy ran while the worker was being constructed.
		w.Terminate()
		call.err = domain.ErrWorkerTerminated
	default:
		call.w = w
		c.worker = w
		c.destroyed = false
		c.seeded = false
		metrics.WorkerSpawnsTotal.WithLabelValues("ok").Inc()
		go c.dispatch(w)
	}
	c.mu.Unlock()

	close(call.done)
	return call.w, call.err
}

// dispatch handles every message from w until its stream closes.
func (c *Client) dispatch(w Worker) {
	for msg := range w.Messages() {
		c.handleMessage(w, msg)
	}
	c.workerStopped(w)
}

func (c *Client) handleMessage(w Worker, msg worker.Response) {
	switch msg.Type {
	case worker.TypeEmbeddingsReady:
		c.mu.Lock()
		c.ready = true
		if c.worker == w {
			c.seeded = true
		}
		waiter := c.takeWaiterLocked(w)
		c.mu.Unlock()

		metrics.CachedDocuments.Set(float64(msg.Count))
		c.logger.Info("Embeddings ready", zap.Int("documents", msg.Count))
		if waiter != nil {
			waiter.ch <- nil
		}

	case worker.TypeSearchResults, worker.TypeHealthCheckResponse:
		if !c.pending.resolve(msg.RequestID, reply{resp: msg}) {
			c.logger.Debug("Dropping late worker response",
				zap.String("type", string(msg.Type)),
				zap.String("request_id", msg.RequestID),
			)
		}

	case worker.TypeError:
		err := fmt.Errorf("%w: %s", domain.ErrWorker, msg.Error)
		if msg.RequestID != "" {
			if !c.pending.resolve(msg.RequestID, reply{err: err}) {
				c.logger.Debug("Dropping late worker error",
					zap.String("request_id", msg.RequestID),
					zap.String("error", msg.Error),
				)
			}
			return
		}

		c.mu.Lock()
		waiter := c.takeWaiterLocked(w)
		c.mu.Unlock()
		if waiter != nil {
			waiter.ch <- err
			return
		}
		c.logger.Warn("Uncorrelated embedding worker error", zap.String("error", msg.Error))

	default:
		c.logger.Warn("Unknown embedding worker message", zap.String("type", string(msg.Type)))
	}
}

// workerStopped rejects everything still waiting on w. A stream that closes with a cause
// is a crash: the worker is forgotten so the next call spawns a new one.
func (c *Client) workerStopped(w Worker) {
	cause := w.Err()

	c.mu.Lock()
	if c.worker == w {
		c.worker = nil
		c.init = nil
		c.seeded = false
	}
	waiter := c.takeWaiterLocked(w)
	c.mu.Unlock()

	err := domain.ErrWorkerTerminated
	if cause != nil {
		err = cause
		if !errors.Is(cause, domain.ErrWorkerCrashed) {
			err = fmt.Errorf("%w: %w", domain.ErrWorkerCrashed, cause)
		}
		metrics.WorkerCrashesTotal.Inc()
		c.logger.Error("Embedding worker stopped unexpectedly", zap.Error(cause))
	}

	rejected := c.pending.failOwnedBy(w, err)
	if waiter != nil {
		waiter.ch <- err
		rejected++
	}
	if rejected > 0 {
		c.logger.Warn("Rejected requests of stopped embedding worker",
			zap.Int("requests", rejected),
			zap.Error(err),
		)
	}
}

func (c *Client) takeWaiterLocked(w Worker) *readyWaiter {
	waiter := c.waiter
	if waiter == nil || waiter.owner != w {
		return nil
	}
	c.waiter = nil
	return waiter
}

func (c *Client) clearWaiter(waiter *readyWaiter) {
	c.mu.Lock()
	if c.waiter == waiter {
		c.waiter = nil
	}
	c.mu.Unlock()
}

func (c *Client) isSeeded(w Worker) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worker == w && c.seeded
}
