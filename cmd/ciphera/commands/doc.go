// Package commands implements the ciphera CLI's cobra command tree: init,
// register, send, recv, and fingerprint. It is the out-of-scope "CLI
// shell" noted in spec.md §1 — a thin caller of internal/x3dh,
// internal/clientstore, internal/store, and internal/relayclient, with no
// protocol logic of its own.
package commands
