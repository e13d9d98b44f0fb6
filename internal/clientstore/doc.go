// Package clientstore implements the in-memory client key-material manager
// (C4): the identity signing key, the current signed prekey secret, the
// one-time prekey map with atomic consume-before-return semantics, and the
// per-peer session-key table with destroy-on-decrypt-failure behaviour.
//
// The package does no file I/O of its own. Snapshot and Restore export and
// re-import the full state, which internal/store uses to keep a CLI
// client's keys and sessions across process restarts.
package clientstore
