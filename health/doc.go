// Package health reports whether castgate can serve protected routes.
//
// Two things must hold for that: the signing key set has been loaded from the
// identity provider, and the casting store answers a ping. KeySetChecker and
// PingChecker cover them; an Aggregator runs every registered check under a
// shared deadline and the HTTP handlers expose the outcome as liveness,
// readiness and detailed probes:
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewKeySetChecker(provider, time.Hour))
//	agg.Register(health.NewPingChecker("store", store))
//	health.Mount(router, agg)
package health
