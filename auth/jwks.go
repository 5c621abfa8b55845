package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/castgate/observe"
	"github.com/jonwraymond/castgate/resilience"
)

// maxJWKSBytes bounds the size of a JWKS response body.
const maxJWKSBytes = 1 << 20

var errRefreshThrottled = errors.New("auth: key set refresh throttled")

// IssuerURL returns the token issuer for an identity provider domain.
func IssuerURL(domain string) string {
	return "https://" + strings.TrimSuffix(domain, "/") + "/"
}

// IssuerJWKSURL returns the well-known JWKS endpoint for a domain.
func IssuerJWKSURL(domain string) string {
	return IssuerURL(domain) + ".well-known/jwks.json"
}

// JWKSConfig configures the JWKS key provider.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long a fetched key set is served before it is
	// refreshed on the next lookup.
	// Default: 1 hour
	CacheTTL time.Duration

	// MinRefreshInterval bounds how often a lookup may trigger a refresh,
	// either for an unknown kid or an expired cache.
	// Default: 1 minute
	MinRefreshInterval time.Duration

	// FetchTimeout bounds each fetch attempt.
	// Default: 5 seconds
	FetchTimeout time.Duration

	// FetchAttempts is the number of attempts Load makes.
	// Default: 3
	FetchAttempts int

	// RetryDelay is the initial backoff between Load attempts.
	// Default: 200ms
	RetryDelay time.Duration

	// HTTPClient is the HTTP client to use for requests.
	// If nil, a default client with 30s timeout is used.
	HTTPClient *http.Client

	// Logger receives load and refresh events. Default: no-op.
	Logger observe.Logger

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// JWKSStats reports the provider's load state.
type JWKSStats struct {
	Loaded          bool
	Keys            int
	KeyIDs          []string
	FetchedAt       time.Time
	Refreshes       int
	FailedRefreshes int
	LastError       string
}

type keyState struct {
	set       *KeySet
	fetchedAt time.Time
}

// JWKSKeyProvider retrieves signing keys from a JWKS endpoint.
//
// The current KeySet is swapped atomically so lookups never observe a
// partially updated set. Load must succeed once before lookups are served;
// until then GetKey fails with ErrKeySetUnavailable.
type JWKSKeyProvider struct {
	config JWKSConfig

	state       atomic.Pointer[keyState]
	lastAttempt atomic.Int64
	sfGroup     singleflight.Group

	mu    sync.Mutex
	stats JWKSStats
}

// NewJWKSKeyProvider creates a new JWKS key provider.
func NewJWKSKeyProvider(config JWKSConfig) *JWKSKeyProvider {
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.MinRefreshInterval <= 0 {
		config.MinRefreshInterval = time.Minute
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 5 * time.Second
	}
	if config.FetchAttempts <= 0 {
		config.FetchAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 200 * time.Millisecond
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &JWKSKeyProvider{config: config}
}

// Load fetches the key set, retrying with exponential backoff. Each attempt
// is bounded by FetchTimeout. Client errors other than 408 and 429 are not
// retried.
func (p *JWKSKeyProvider) Load(ctx context.Context) error {
	logger := p.config.Logger.With(observe.F("jwks_url", p.config.URL))

	policy := resilience.Policy{
		Attempts: p.config.FetchAttempts,
		Backoff: resilience.Backoff{
			Initial: p.config.RetryDelay,
			Max:     10 * time.Second,
			Jitter:  true,
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn(ctx, "JWKS fetch failed, retrying",
				observe.F("attempt", attempt),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.F("error", err),
			)
		},
	}

	p.lastAttempt.Store(p.config.Now().UnixNano())
	err := resilience.Do(ctx, policy, p.fetchWithTimeout)
	if err != nil {
		p.recordFailure(err)
		logger.Error(ctx, "JWKS load failed", observe.F("error", err))
		return fmt.Errorf("load JWKS from %s: %w", p.config.URL, err)
	}

	logger.Info(ctx, "JWKS loaded", observe.F("keys", p.current().set.KeyIDs()))
	return nil
}

// GetKey returns the key for the given key ID. An expired cache or an
// unknown kid triggers at most one refresh per MinRefreshInterval; a failed
// refresh keeps serving the previous set.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	st := p.current()
	if st == nil {
		return nil, ErrKeySetUnavailable
	}

	if p.config.Now().Sub(st.fetchedAt) >= p.config.CacheTTL {
		if err := p.refresh(ctx, "ttl"); err == nil {
			st = p.current()
		}
	}

	if key, ok := st.set.Lookup(keyID); ok {
		return key, nil
	}

	if err := p.refresh(ctx, "unknown_kid"); err == nil {
		if key, ok := p.current().set.Lookup(keyID); ok {
			return key, nil
		}
	}

	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, keyID)
}

// Ready reports whether a key set has been loaded.
func (p *JWKSKeyProvider) Ready() bool {
	return p.current() != nil
}

// Stats returns a snapshot of the provider's load state.
func (p *JWKSKeyProvider) Stats() JWKSStats {
	p.mu.Lock()
	stats := p.stats
	p.mu.Unlock()

	if st := p.current(); st != nil {
		stats.Loaded = true
		stats.Keys = st.set.Len()
		stats.KeyIDs = st.set.KeyIDs()
		stats.FetchedAt = st.fetchedAt
	}
	return stats
}

func (p *JWKSKeyProvider) current() *keyState {
	return p.state.Load()
}

// refresh re-fetches the key set. Concurrent callers share one fetch, and a
// fetch is only started when MinRefreshInterval has passed since the last.
func (p *JWKSKeyProvider) refresh(ctx context.Context, reason string) error {
	_, err, _ := p.sfGroup.Do("refresh", func() (any, error) {
		if !p.claimRefresh() {
			return nil, errRefreshThrottled
		}
		// The fetch is shared, so it must not die with the first caller.
		fctx := context.WithoutCancel(ctx)
		err := p.fetchWithTimeout(fctx)
		if err != nil {
			p.recordFailure(err)
			p.config.Logger.Warn(ctx, "JWKS refresh failed, serving previous key set",
				observe.F("jwks_url", p.config.URL),
				observe.F("reason", reason),
				observe.F("error", err),
			)
			return nil, err
		}
		p.config.Logger.Debug(ctx, "JWKS refreshed", observe.F("reason", reason))
		return nil, nil
	})
	return err
}

func (p *JWKSKeyProvider) claimRefresh() bool {
	now := p.config.Now()
	last := p.lastAttempt.Load()
	if last != 0 && now.Sub(time.Unix(0, last)) < p.config.MinRefreshInterval {
		return false
	}
	return p.lastAttempt.CompareAndSwap(last, now.UnixNano())
}

func (p *JWKSKeyProvider) fetchWithTimeout(ctx context.Context) error {
	return resilience.WithTimeout(ctx, p.config.FetchTimeout, p.fetch)
}

// fetch retrieves and parses the JWKS document and swaps in the new set.
func (p *JWKSKeyProvider) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch JWKS: unexpected status: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return resilience.Permanent(err)
		}
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return fmt.Errorf("read JWKS: %w", err)
	}
	set, err := ParseKeySet(body)
	if err != nil {
		return err
	}

	p.state.Store(&keyState{set: set, fetchedAt: p.config.Now()})

	p.mu.Lock()
	p.stats.Refreshes++
	p.stats.LastError = ""
	p.mu.Unlock()
	return nil
}

func (p *JWKSKeyProvider) recordFailure(err error) {
	p.mu.Lock()
	p.stats.FailedRefreshes++
	p.stats.LastError = err.Error()
	p.mu.Unlock()
}

// Ensure JWKSKeyProvider implements KeyProvider
var _ KeyProvider = (*JWKSKeyProvider)(nil)
