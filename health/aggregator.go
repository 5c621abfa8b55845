package health

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrCheckTimeout    = errors.New("health: check timeout")
	ErrCheckerNotFound = errors.New("health: checker not found")
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds a whole CheckAll or Check call. Default: 5 seconds
	Timeout time.Duration
}

// Aggregator runs the registered checkers concurrently under one deadline.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
}

func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Aggregator{timeout: config.Timeout, checkers: make(map[string]Checker)}
}

// Register adds a checker under its name, replacing any previous one.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	a.checkers[checker.Name()] = checker
	a.mu.Unlock()
}

// Names returns the registered checker names in sorted order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Sorted(maps.Keys(a.checkers))
}

// Check runs the checker registered as name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered checker in parallel and returns the
// results by name. Checkers still running at the deadline report
// ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := slices.Collect(maps.Values(a.checkers))
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	for i, checker := range checkers {
		g.Go(func() error {
			results[i] = runCheck(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(checkers))
	for i, checker := range checkers {
		out[checker.Name()] = results[i]
	}
	return out
}

// Overall is the worst status in results, or healthy when there are none.
func Overall(results map[string]Result) Status {
	overall := StatusHealthy
	for _, result := range results {
		overall = max(overall, result.Status)
	}
	return overall
}

func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- checker.Check(ctx) }()

	var result Result
	select {
	case result = <-done:
	case <-ctx.Done():
		result = Unhealthy("check timed out", ErrCheckTimeout)
	}
	result.Duration = time.Since(start)
	return result
}
