// Package health runs the scorer's dependency checks (catalog, Postgres,
// Redis and the score cache breaker) concurrently and serves the aggregate
// on liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/resilience"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// rank orders statuses from best to worst.
func (s Status) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check tests one dependency. It should return promptly once ctx is done.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker holds named checks and the last status seen for each.
type Checker struct {
	checkTimeout time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	checks map[string]Check
	last   map[string]Status
}

// NewChecker creates an empty Checker whose checks are each bounded by two
// seconds.
func NewChecker() *Checker {
	return &Checker{
		checkTimeout: 2 * time.Second,
		checks:       make(map[string]Check),
		last:         make(map[string]Status),
		logger:       slog.Default().With("component", "health"),
	}
}

// PingCheck adapts a connectivity check. A nil ping reports the dependency
// as not configured. Failures report down for required dependencies and
// degraded for optional ones.
func PingCheck(ping func(ctx context.Context) error, required bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if ping == nil {
			return ComponentHealth{Status: StatusDegraded, Message: "not configured"}
		}
		if err := ping(ctx); err != nil {
			if required {
				return ComponentHealth{Status: StatusDown, Message: err.Error()}
			}
			return ComponentHealth{Status: StatusDegraded, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// BreakerCheck reports degraded while a circuit breaker is not closed.
func BreakerCheck(snapshot func() resilience.Snapshot) Check {
	return func(context.Context) ComponentHealth {
		s := snapshot()
		if s.State == resilience.StateClosed.String() {
			return ComponentHealth{Status: StatusUp}
		}
		return ComponentHealth{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("circuit %s after %d consecutive failures", s.State, s.ConsecutiveFailures),
		}
	}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check concurrently. The report status is the worst
// component status; a check that overruns its timeout reports down.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.runOne(ctx, check)
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	for name, comp := range report.Components {
		if comp.Status.rank() > report.Status.rank() {
			report.Status = comp.Status
		}
		c.observe(name, comp)
	}
	return report
}

func (c *Checker) runOne(ctx context.Context, check Check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()
	start := time.Now()
	done := make(chan ComponentHealth, 1)
	go func() { done <- check(ctx) }()

	var result ComponentHealth
	select {
	case result = <-done:
	case <-ctx.Done():
		result = ComponentHealth{Status: StatusDown, Message: "check timed out"}
	}
	result.Latency = time.Since(start).Round(time.Millisecond).String()
	return result
}

func (c *Checker) observe(name string, comp ComponentHealth) {
	c.mu.Lock()
	prev, seen := c.last[name]
	c.last[name] = comp.Status
	c.mu.Unlock()
	if seen && prev != comp.Status {
		c.logger.Warn("component health changed", "check", name, "from", prev, "to", comp.Status, "message", comp.Message)
	}
}

// LiveHandler always reports alive while the process serves HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler reports 503 only when the aggregate is down. A degraded
// report is still ready: the scorer serves without its optional score cache.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
