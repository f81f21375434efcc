// Package health aggregates liveness of the search pipeline and its dependencies.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckPending indicates a component that has not started yet. Not a failure.
	CheckPending CheckResult = "pending"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	search    SearchProbe
	cache     CachePinger
	embedding EmbeddingChecker
}

// New creates a Service. cache and embedding can be nil.
func New(search SearchProbe, cache CachePinger, embedding EmbeddingChecker) *Service {
	return &Service{search: search, cache: cache, embedding: embedding}
}

// Check runs health checks against all components.
//
// "index" is pending until embeddings are generated and "model" is pending until the
// worker has loaded it; search falls back to keyword matching meanwhile.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.search.IsReady() {
		checks["index"] = CheckOK
	} else {
		checks["index"] = CheckPending
	}

	switch loaded, err := s.search.ModelLoaded(ctx); {
	case err != nil:
		checks["model"] = CheckError
	case loaded:
		checks["model"] = CheckOK
	default:
		checks["model"] = CheckPending
	}

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
