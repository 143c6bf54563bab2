package databrowser

import (
	"context"

	healthuc "github.com/freva-org/databrowser/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // "index" and "archive:<template>" → "ok"/"error"
}

// Health checks the index and every template root directory.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
