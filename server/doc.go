// Package server assembles the casting agency service: configuration from
// the environment, the signing key provider and gate, the casting store, the
// HTTP router with its middleware stack, and graceful shutdown.
package server
