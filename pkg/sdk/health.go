package makan

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/makan/internal/usecase/health"
)

// HealthStatus represents the aggregated health of the embedded engine.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // component -> "ok"/"pending"/"error"
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Health reports index, model and (if the embedder supports it) provider health.
// Before the first Index call the index is reported as pending.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	_, health := c.current()
	if health == nil {
		c.obs.observe("health", start, nil)
		return HealthStatus{
			Status: string(healthuc.Healthy),
			Checks: map[string]string{"index": string(healthuc.CheckPending)},
		}
	}

	report := health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	c.obs.observe("health", start, nil, "status", string(report.Status))
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
