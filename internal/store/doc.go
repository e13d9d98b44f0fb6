// Package store persists a ciphera CLI client's identity and key-material
// state to disk between process invocations, encrypted at rest under a
// passphrase.
//
// The on-disk format is a JSON envelope holding a random Argon2id salt
// and a ChaCha20-Poly1305-sealed blob of the client's clientstore.Snapshot
// plus its registered username, mirroring the reference CLI's encrypted
// identity file.
package store
