// Package metrics declares the Prometheus collectors exposed by cmd/relay.
// Naming and grouping follow the reference operator's exported metric
// surface: counters for the directory operations that have a clear
// success/failure outcome, gauges for the one-time-key pool and queue
// depth, and, for the transport layer, an HTTP request counter by
// route/method/status plus a per-route duration histogram. All collectors
// register themselves on import via promauto; cmd/relay mounts the
// /metrics handler.
package metrics
