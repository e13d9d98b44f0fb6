// Package service implements the transport-agnostic facade (C6): five
// operations — Register, PublishOneTimeKeys, RequestPreKeys, SendMessage,
// RetrieveMessages — that parse already-decoded requests, delegate to
// internal/directory, record Prometheus counters, and return results.
// No Diffie-Hellman or AEAD happens in this package; X3DH lives entirely
// on the client side, in internal/x3dh and internal/clientstore.
package service
