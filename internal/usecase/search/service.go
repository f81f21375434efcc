// Package search exposes semantic search over the place catalog with component-friendly
// state flags, falling back to keyword matching whenever semantic search cannot answer.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/domain"
	"github.com/kailas-cloud/makan/internal/metrics"
	"github.com/kailas-cloud/makan/internal/places"
)

// ErrClosed is returned by operations on a closed service.
var ErrClosed = errors.New("search service closed")

// Mode tells which engine produced a result.
type Mode string

const (
	// ModeSemantic results are ranked by embedding similarity.
	ModeSemantic Mode = "semantic"
	// ModeKeyword results come from substring matching in dataset order.
	ModeKeyword Mode = "keyword"
)

// Result is one answered query.
type Result struct {
	Mode   Mode
	Places []domain.Place
}

// State mirrors the flags a UI needs to render search.
type State struct {
	Initializing bool `json:"initializing"`
	Searching    bool `json:"searching"`
	Ready        bool `json:"ready"`
}

// Config holds search defaults.
type Config struct {
	Locales     []string
	DefaultTopK int
	MaxTopK     int
}

// Service owns one semantic client for the lifetime of a catalog.
type Service struct {
	client  SemanticClient
	catalog Catalog
	cfg     Config
	logger  *zap.Logger

	// genSlot admits one GenerateEmbeddings call at a time. The client has a single ready waiter.
	genSlot chan struct{}

	mu         sync.Mutex
	started    bool
	aborted    bool
	generating int
	searching  int
	initDone   chan struct{}
	initErr    error
	cancel     context.CancelFunc
}

// New creates a service. Nothing runs until Start.
func New(client SemanticClient, catalog Catalog, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 10
	}
	if cfg.MaxTopK < cfg.DefaultTopK {
		cfg.MaxTopK = max(cfg.DefaultTopK, 50)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:   client,
		catalog:  catalog,
		cfg:      cfg,
		logger:   logger,
		genSlot:  make(chan struct{}, 1),
		initDone: make(chan struct{}),
	}
}

// Start generates embeddings for the catalog in the background. Calling it again is a no-op.
// Completion after Close is ignored.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.generating++
	s.mu.Unlock()

	docs := places.BuildDocuments(s.catalog.All(), s.cfg.Locales)
	s.logger.Info("Generating embeddings", zap.Int("documents", len(docs)))

	go func() {
		defer cancel()
		start := time.Now()
		err := s.generate(ctx, docs)

		s.mu.Lock()
		s.generating--
		aborted := s.aborted
		s.initErr = err
		s.mu.Unlock()
		close(s.initDone)

		switch {
		case aborted:
			s.logger.Debug("Ignoring embedding generation result after close", zap.Error(err))
		case err != nil:
			s.logger.Error("Embedding generation failed, keyword search stays active", zap.Error(err))
		default:
			s.logger.Info("Semantic search ready",
				zap.Int("documents", len(docs)),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}()
	return nil
}

// Wait blocks until the generation started by Start has finished and returns its error.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("search service not started")
	}

	select {
	case <-s.initDone:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.aborted {
			return ErrClosed
		}
		return s.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reindex regenerates embeddings synchronously. It re-seeds a worker that was restarted.
// A Reindex during Start's generation runs after it.
func (s *Service) Reindex(ctx context.Context) error {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return ErrClosed
	}
	s.generating++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.generating--
		s.mu.Unlock()
	}()

	docs := places.BuildDocuments(s.catalog.All(), s.cfg.Locales)
	if err := s.generate(ctx, docs); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	s.logger.Info("Embeddings regenerated", zap.Int("documents", len(docs)))
	return nil
}

// generate runs GenerateEmbeddings once no other generation is in flight.
func (s *Service) generate(ctx context.Context, docs []domain.SearchableDocument) error {
	select {
	case s.genSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.genSlot }()
	return s.client.GenerateEmbeddings(ctx, docs)
}

// Search answers query with at most topK places. Semantic search is used once ready;
// any failure falls back to keyword matching instead of surfacing an error.
func (s *Service) Search(ctx context.Context, query string, topK int) (Result, error) {
	if s.isAborted() {
		return Result{}, ErrClosed
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Mode: ModeSemantic, Places: []domain.Place{}}, nil
	}
	topK = s.clampTopK(topK)

	if s.client.IsReady() {
		found, err := s.searchSemantic(ctx, query, topK)
		if err == nil {
			metrics.SearchModeTotal.WithLabelValues(string(ModeSemantic)).Inc()
			return Result{Mode: ModeSemantic, Places: found}, nil
		}
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		s.logger.Warn("Semantic search failed, falling back to keyword search",
			zap.String("query", query),
			zap.Error(err),
		)
	}

	found := places.SearchForKeyword(s.catalog.All(), query)
	if len(found) > topK {
		found = found[:topK]
	}
	metrics.SearchModeTotal.WithLabelValues(string(ModeKeyword)).Inc()
	return Result{Mode: ModeKeyword, Places: found}, nil
}

func (s *Service) searchSemantic(ctx context.Context, query string, topK int) ([]domain.Place, error) {
	s.mu.Lock()
	s.searching++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.searching--
		s.mu.Unlock()
	}()

	ids, err := s.client.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return s.catalog.Resolve(ids), nil
}

// State returns the current flags.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Initializing: s.generating > 0,
		Searching:    s.searching > 0,
		Ready:        s.client.IsReady(),
	}
}

// Close aborts pending generation and destroys the client. Safe to call more than once.
func (s *Service) Close() {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.client.Destroy()
}

func (s *Service) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *Service) clampTopK(k int) int {
	if k <= 0 {
		return s.cfg.DefaultTopK
	}
	return min(k, s.cfg.MaxTopK)
}
