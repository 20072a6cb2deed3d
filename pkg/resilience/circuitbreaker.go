// Package resilience provides the fault-tolerance primitives the scorer
// wraps its dependencies in: a circuit breaker around Redis, retry with
// exponential backoff for the catalog restore and Kafka handlers, and a
// context-based timeout for document-frequency enumeration.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls when the breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a trial request.
	ResetTimeout time.Duration
	// HalfOpenMaxRequests caps concurrent trial requests while half-open.
	HalfOpenMaxRequests int
	// IsFailure decides which errors count against the dependency. Nil
	// counts every error except context cancellation, which reflects the
	// caller going away rather than the dependency failing.
	IsFailure func(err error) bool
	// OnStateChange is called with the breaker's lock held and must not
	// call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// CircuitBreaker opens after consecutive failures, rejects calls for
// ResetTimeout, then lets trial requests through half-open until one succeeds.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	trials      int
}

// NewCircuitBreaker fills zero config values with defaults: 5 failures,
// 30s reset, one trial request.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn unless the circuit is open and returns its error
// unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		Name:                cb.name,
		State:               cb.state.String(),
		ConsecutiveFailures: cb.failures,
		LastFailure:         cb.lastFailure,
	}
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - time.Since(cb.lastFailure)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		cb.setState(StateHalfOpen)
		cb.trials = 1
	case StateHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (trial in flight)", ErrCircuitOpen, cb.name)
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch {
	case err != nil && !cb.cfg.IsFailure(err):
		if cb.state == StateHalfOpen && cb.trials > 0 {
			cb.trials--
		}
	case err != nil:
		cb.failures++
		cb.lastFailure = time.Now()
		switch {
		case cb.state == StateHalfOpen:
			cb.logger.Warn("trial request failed, circuit re-opened", "error", err)
			cb.setState(StateOpen)
		case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
			cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
			cb.setState(StateOpen)
		}
	default:
		if cb.state == StateHalfOpen {
			cb.logger.Info("circuit closed after successful trial request")
			cb.setState(StateClosed)
		}
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	cb.state = to
	if to != StateHalfOpen {
		cb.trials = 0
	}
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
