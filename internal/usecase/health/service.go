package health

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index   IndexPinger
	archive RootChecker
	roots   map[string]string // template id -> root dir
}

// New creates a Service. archive can be nil, in which case roots are not checked.
func New(index IndexPinger, archive RootChecker, roots map[string]string) *Service {
	return &Service{index: index, archive: archive, roots: roots}
}

// Check runs all health checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var mu sync.Mutex
	checks := make(map[string]CheckResult, len(s.roots)+1)
	record := func(name string, err error) {
		res := CheckOK
		if err != nil {
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	// Checks never fail the group; each outcome is recorded instead.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record("index", s.index.Ping(gctx))
		return nil
	})
	if s.archive != nil {
		for id, root := range s.roots {
			g.Go(func() error {
				record("archive:"+id, s.archive.CheckRoot(gctx, root))
				return nil
			})
		}
	}
	_ = g.Wait()

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}
	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
