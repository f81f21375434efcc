package makan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/domain"
	"github.com/kailas-cloud/makan/internal/places"
	"github.com/kailas-cloud/makan/internal/searchclient"
	embeddinguc "github.com/kailas-cloud/makan/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/makan/internal/usecase/health"
	searchuc "github.com/kailas-cloud/makan/internal/usecase/search"
)

const sdkProvider = "sdk"

// searchUseCase is the internal interface of one indexed generation.
type searchUseCase interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context) error
	Search(ctx context.Context, query string, topK int) (searchuc.Result, error)
	State() searchuc.State
	Close()
}

// Client is the makan SDK entry point. It is safe for concurrent use.
type Client struct {
	cfg *clientConfig
	obs *observer

	// newSearch builds the search pipeline for a catalog. Replaced in tests.
	newSearch func(catalog *places.Catalog) (searchUseCase, healthUseCase)

	mu     sync.Mutex
	search searchUseCase
	health healthUseCase
	closed bool
}

// New creates a Client. No model work happens until Index.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		locales:     places.DefaultLocales,
		defaultTopK: searchclient.DefaultTopK,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, ErrEmbedderRequired
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, obs: obs}
	c.newSearch = c.buildSearch
	return c, nil
}

// Index replaces the searchable set with places and blocks until their embeddings are
// generated or ctx is done. Until it returns, searches are answered by keyword matching.
func (c *Client) Index(ctx context.Context, items []Place) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("index", start, err, "places", len(items)) }()

	catalog, err := places.NewCatalog(placesToDomain(items))
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	svc, health := c.newSearch(catalog)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		svc.Close()
		return ErrClosed
	}
	prev := c.search
	c.search, c.health = svc, health
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	if err = svc.Start(ctx); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err = svc.Wait(ctx); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	c.obs.indexed(catalog.Len())
	return nil
}

// Search returns at most k places for query; k <= 0 uses the default. The result mode
// tells whether semantic search answered or keyword matching stood in.
func (c *Client) Search(ctx context.Context, query string, k int) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "mode", string(res.Mode), "results", len(res.Places)) }()

	svc, _ := c.current()
	if svc == nil {
		if c.isClosed() {
			return SearchResult{}, ErrClosed
		}
		return SearchResult{}, ErrNotIndexed
	}

	r, err := svc.Search(ctx, query, k)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	res = resultFromDomain(r)
	c.obs.searchAnswered(res.Mode)
	return res, nil
}

// Ready reports whether semantic search is available.
func (c *Client) Ready() bool {
	svc, _ := c.current()
	return svc != nil && svc.State().Ready
}

// State returns the current search flags.
func (c *Client) State() State {
	svc, _ := c.current()
	if svc == nil {
		return State{}
	}
	return stateFromDomain(svc.State())
}

// Close stops the embedding worker. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	svc := c.search
	c.search, c.health = nil, nil
	c.mu.Unlock()

	if svc != nil {
		svc.Close()
	}
	c.obs.observe("close", time.Now(), nil)
}

func (c *Client) current() (searchUseCase, healthUseCase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search, c.health
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// buildSearch wires a fresh worker-backed pipeline for catalog.
func (c *Client) buildSearch(catalog *places.Catalog) (searchUseCase, healthUseCase) {
	logger := zap.NewNop()
	embedder := c.cfg.embedder
	batchSize := c.cfg.batchSize

	loader := func(context.Context) (domain.Embedder, error) {
		return embeddinguc.NewInstrumentedEmbedder(
			newEmbedderAdapter(embedder), sdkProvider, fmt.Sprintf("%T", embedder), batchSize, logger,
		), nil
	}

	client := searchclient.New(searchclient.NewSpawner(loader, logger), logger).
		WithTimeouts(c.cfg.generateTimeout, c.cfg.searchTimeout)

	svc := searchuc.New(client, catalog, searchuc.Config{
		Locales:     c.cfg.locales,
		DefaultTopK: c.cfg.defaultTopK,
		MaxTopK:     c.cfg.maxTopK,
	}, logger)

	// Nil interface, not a typed nil, when the embedder has no health check.
	var checker healthuc.EmbeddingChecker
	if hc, ok := embedder.(HealthChecker); ok {
		checker = hc
	}
	return svc, healthuc.New(client, nil, checker)
}
