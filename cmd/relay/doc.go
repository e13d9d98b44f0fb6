// Package main runs the HTTP relay: the C6 facade over a SQLite-backed
// prekey directory and message queue. It never sees plaintext or private
// keys; it only stores identity keys, signed prekeys, one-time prekey
// pools, and opaque initial-message ciphertexts.
//
// HTTP API
//
//	POST /register
//	    Register an identity with its identity key and signed prekey.
//	    A duplicate register for an existing identity is a no-op.
//
//	POST /prekeys
//	    Append a signed batch of one-time prekeys to an identity's pool.
//
//	GET /prekey/{identity}
//	    Return identity's current prekey bundle, popping one one-time key
//	    from the pool if any remain.
//
//	POST /message/{identity}
//	    Enqueue an initial message for {identity}.
//
//	GET /messages/{identity}
//	    Drain and return every message queued for {identity}.
//
// Behaviour
//
//   - State is held in a SQLite database at the path given by --db.
//   - Responses are JSON. Non-2xx statuses carry a short error message.
//   - A lightweight access log records method, path, remote, status, bytes
//     and duration for each request when --log is set.
//   - GET /metrics exposes Prometheus counters and histograms; GET /healthz
//     is a liveness probe.
//   - The default listen address is :8080.
package main
