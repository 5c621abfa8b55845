package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/castgate/auth"
)

type staticStats auth.JWKSStats

func (s staticStats) Stats() auth.JWKSStats { return auth.JWKSStats(s) }

func TestKeySetChecker(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		stats  auth.JWKSStats
		want   Status
		errIs  error
		maxAge time.Duration
	}{
		{
			name:  "not loaded",
			stats: auth.JWKSStats{LastError: "dial tcp: refused"},
			want:  StatusUnhealthy,
			errIs: auth.ErrKeySetUnavailable,
		},
		{
			name:   "fresh",
			stats:  auth.JWKSStats{Loaded: true, Keys: 2, KeyIDs: []string{"a", "b"}, FetchedAt: now.Add(-time.Minute)},
			want:   StatusHealthy,
			maxAge: time.Hour,
		},
		{
			name:   "refresh failing",
			stats:  auth.JWKSStats{Loaded: true, Keys: 1, FetchedAt: now.Add(-time.Minute), LastError: "status 500"},
			want:   StatusDegraded,
			maxAge: time.Hour,
		},
		{
			name:   "stale",
			stats:  auth.JWKSStats{Loaded: true, Keys: 1, FetchedAt: now.Add(-3 * time.Hour)},
			want:   StatusDegraded,
			maxAge: time.Hour,
		},
		{
			name:  "age check disabled",
			stats: auth.JWKSStats{Loaded: true, Keys: 1, FetchedAt: now.Add(-72 * time.Hour)},
			want:  StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewKeySetChecker(staticStats(tt.stats), tt.maxAge)
			c.now = func() time.Time { return now }

			r := c.Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tt.want, r.Message)
			}
			if tt.errIs != nil && !errors.Is(r.Error, tt.errIs) {
				t.Errorf("Error = %v, want %v", r.Error, tt.errIs)
			}
			if c.Name() != "jwks" {
				t.Errorf("Name() = %q", c.Name())
			}
		})
	}
}
