package chi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/makan/internal/domain"
	logpkg "github.com/kailas-cloud/makan/internal/logger"
	healthuc "github.com/kailas-cloud/makan/internal/usecase/health"
	searchuc "github.com/kailas-cloud/makan/internal/usecase/search"
)

// SearchService answers queries and regenerates the embedding index.
type SearchService interface {
	Search(ctx context.Context, query string, topK int) (searchuc.Result, error)
	State() searchuc.State
	Reindex(ctx context.Context) error
}

// PlaceCatalog serves the loaded places.
type PlaceCatalog interface {
	All() []domain.Place
	Get(id string) (domain.Place, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the makan REST API.
type Server struct {
	search     SearchService
	catalog    PlaceCatalog
	health     HealthChecker
	logger     *zap.Logger
	reindexing atomic.Bool
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, catalog PlaceCatalog, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		search:  search,
		catalog: catalog,
		health:  health,
		logger:  logger,
	}
}

// PlacesResponse lists places.
type PlacesResponse struct {
	Places []domain.Place `json:"places"`
	Count  int            `json:"count"`
}

// SearchResponse is the answer to a search query.
type SearchResponse struct {
	Mode    searchuc.Mode  `json:"mode"`
	Results []domain.Place `json:"results"`
}

// ReindexResponse acknowledges a scheduled reindex.
type ReindexResponse struct {
	Status string `json:"status"`
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/places", s.ListPlaces)
		r.Get("/places/{id}", s.GetPlace)
		r.Get("/search", s.Search)
		r.Get("/search/state", s.SearchState)
		r.Post("/search/reindex", s.Reindex)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})
}

// ListPlaces handles GET /api/v1/places.
func (s *Server) ListPlaces(w http.ResponseWriter, _ *http.Request) {
	all := s.catalog.All()
	writeJSON(w, http.StatusOK, PlacesResponse{Places: all, Count: len(all)})
}

// GetPlace handles GET /api/v1/places/{id}.
func (s *Server) GetPlace(w http.ResponseWriter, r *http.Request) {
	place, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

// Search handles GET /api/v1/search?q=&k=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.handleDomainError(w, r, domain.ErrEmptyQuery)
		return
	}

	topK := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k <= 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "k must be a positive integer")
			return
		}
		topK = k
	}

	res, err := s.search.Search(r.Context(), query, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := res.Places
	if results == nil {
		results = []domain.Place{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Mode: res.Mode, Results: results})
}

// SearchState handles GET /api/v1/search/state.
func (s *Server) SearchState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.search.State())
}

// Reindex handles POST /api/v1/search/reindex. Generation runs in the background.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	if !s.reindexing.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, CodeReindexInProgress, "reindex already in progress")
		return
	}

	log := logpkg.FromContextOr(r.Context(), s.logger)
	ctx := context.WithoutCancel(r.Context())
	go func() {
		defer s.reindexing.Store(false)
		if err := s.search.Reindex(ctx); err != nil {
			log.Error("Reindex failed", zap.Error(err))
			return
		}
		log.Info("Reindex finished")
	}()

	writeJSON(w, http.StatusAccepted, ReindexResponse{Status: "accepted"})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))

	msg := safeDomainMessage(err)
	for _, h := range domainErrorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
