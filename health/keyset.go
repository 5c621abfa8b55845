package health

import (
	"context"
	"time"

	"github.com/jonwraymond/castgate/auth"
)

// KeySetSource reports the state of a signing key set.
type KeySetSource interface {
	Stats() auth.JWKSStats
}

// KeySetChecker reports on the gate's signing keys.
//
// Unhealthy when nothing has loaded, since the gate then rejects every
// request. Degraded when the last refresh failed or the set is older than
// MaxAge; the gate keeps serving the previous keys in that state.
type KeySetChecker struct {
	source KeySetSource
	maxAge time.Duration
	now    func() time.Time
}

// NewKeySetChecker creates a KeySetChecker. A zero maxAge disables the age check.
func NewKeySetChecker(source KeySetSource, maxAge time.Duration) *KeySetChecker {
	return &KeySetChecker{source: source, maxAge: maxAge, now: time.Now}
}

// Name returns "jwks".
func (c *KeySetChecker) Name() string {
	return "jwks"
}

// Check inspects the provider's stats.
func (c *KeySetChecker) Check(_ context.Context) Result {
	stats := c.source.Stats()
	if !stats.Loaded {
		return Unhealthy("signing keys not loaded", auth.ErrKeySetUnavailable).
			WithDetails(map[string]any{"last_error": stats.LastError})
	}

	details := map[string]any{
		"keys":             stats.Keys,
		"key_ids":          stats.KeyIDs,
		"fetched_at":       stats.FetchedAt.UTC().Format(time.RFC3339),
		"refreshes":        stats.Refreshes,
		"failed_refreshes": stats.FailedRefreshes,
	}

	if stats.LastError != "" {
		details["last_error"] = stats.LastError
		return Degraded("last refresh failed, serving previous key set").WithDetails(details)
	}
	if c.maxAge > 0 {
		if age := c.now().Sub(stats.FetchedAt); age > c.maxAge {
			details["age"] = age.Round(time.Second).String()
			return Degraded("signing keys are stale").WithDetails(details)
		}
	}
	return Healthy("signing keys loaded").WithDetails(details)
}
