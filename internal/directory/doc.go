// Package directory implements the prekey directory and message queue
// (C5): a durable, concurrency-safe SQLite-backed store of per-identity
// identity keys, signed prekeys, one-time prekey pools, and queued initial
// messages.
//
// Schema and pragmas mirror the reference implementation's SQLite storage
// layer: WAL journaling, synchronous=NORMAL, foreign keys enforced, and a
// monotonic created_at used only for FIFO ordering. The connection pool is
// capped at one connection (see New) so the atomic FIFO-pop transaction in
// RequestPreKeys is never split across two pooled SQLite connections.
package directory
