// Package resilience bounds and retries the gate's only outbound call, the
// JWKS fetch.
//
//	policy := resilience.Policy{
//	    Attempts: 3,
//	    Backoff:  resilience.Backoff{Initial: 200 * time.Millisecond, Max: 2 * time.Second},
//	}
//	err := resilience.Do(ctx, policy, func(ctx context.Context) error {
//	    return resilience.WithTimeout(ctx, 5*time.Second, fetchKeys)
//	})
//
// Wrap an error with Permanent to stop retrying it.
package resilience
