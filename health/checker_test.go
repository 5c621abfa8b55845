package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
		{Status(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_Ready(t *testing.T) {
	if !StatusHealthy.Ready() || !StatusDegraded.Ready() {
		t.Error("healthy and degraded should be ready")
	}
	if StatusUnhealthy.Ready() {
		t.Error("unhealthy should not be ready")
	}
}

func TestResultConstructors(t *testing.T) {
	err := errors.New("boom")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Message != "ok" {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow"); r.Status != StatusDegraded {
		t.Errorf("Degraded() = %+v", r)
	}
	r := Unhealthy("down", err).WithDetails(map[string]any{"k": 1})
	if r.Status != StatusUnhealthy || r.Error != err || r.Details["k"] != 1 {
		t.Errorf("Unhealthy() = %+v", r)
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNewPingChecker(t *testing.T) {
	ok := NewPingChecker("store", pingerFunc(func(context.Context) error { return nil }))
	if ok.Name() != "store" {
		t.Errorf("Name() = %q", ok.Name())
	}
	if r := ok.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Check() = %+v, want healthy", r)
	}

	boom := errors.New("connection refused")
	bad := NewPingChecker("store", pingerFunc(func(context.Context) error { return boom }))
	r := bad.Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, boom) {
		t.Errorf("Check() = %+v, want unhealthy with cause", r)
	}
}
