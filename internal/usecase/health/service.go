// Package health aggregates readiness checks of the pipeline dependencies.
package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed.
	Degraded Status = "degraded"
	// Unhealthy indicates a required component failed.
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
	Errors map[string]string
}

// Names returns the checked component names, sorted.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for n := range r.Checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type check struct {
	name     string
	fn       func(ctx context.Context) error
	required bool
}

// Service coordinates health checks.
type Service struct {
	checks []check
}

// New creates a Service with the search engine as the required check.
// embedding can be nil.
func New(engine Pinger, embedding EmbeddingChecker) *Service {
	s := &Service{}
	s.checks = append(s.checks, check{name: "search_engine", fn: engine.Ping, required: true})
	if embedding != nil {
		s.checks = append(s.checks, check{name: "embedding", fn: embedding.HealthCheck, required: true})
	}
	return s
}

// WithOptional adds a check whose failure only degrades the report.
func (s *Service) WithOptional(name string, p Pinger) *Service {
	if p != nil {
		s.checks = append(s.checks, check{name: name, fn: p.Ping})
	}
	return s
}

// Check runs every registered check.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{
		Status: Healthy,
		Checks: make(map[string]CheckResult, len(s.checks)),
		Errors: make(map[string]string),
	}

	for _, c := range s.checks {
		if err := c.fn(ctx); err != nil {
			r.Checks[c.name] = CheckError
			r.Errors[c.name] = err.Error()
			switch {
			case c.required:
				r.Status = Unhealthy
			case r.Status == Healthy:
				r.Status = Degraded
			}
			continue
		}
		r.Checks[c.name] = CheckOK
	}

	return r
}
