package health

import (
	"context"
	"time"
)

// Status is the state a check reports. Values are ordered from best to worst
// so the overall status is the maximum over all checks.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded still serves traffic, e.g. on stale signing keys.
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Ready reports whether a component in this state can take requests.
func (s Status) Ready() bool {
	return s != StatusUnhealthy
}

// Result is the outcome of one check run.
type Result struct {
	Status  Status
	Message string
	Details map[string]any
	Error   error

	// Duration is filled in by the Aggregator.
	Duration time.Duration
}

func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails returns a copy of r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one dependency of the service. Check may be called
// concurrently and should return once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkFunc struct {
	name string
	fn   func(context.Context) Result
}

func (c checkFunc) Name() string                     { return c.name }
func (c checkFunc) Check(ctx context.Context) Result { return c.fn(ctx) }

// CheckFunc names fn as a Checker.
func CheckFunc(name string, fn func(context.Context) Result) Checker {
	return checkFunc{name: name, fn: fn}
}

// Pinger is satisfied by the casting store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingChecker reports unhealthy when p.Ping fails.
func NewPingChecker(name string, p Pinger) Checker {
	return CheckFunc(name, func(ctx context.Context) Result {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("ping failed", err)
		}
		return Healthy("reachable")
	})
}
