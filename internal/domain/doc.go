// Package domain holds the shared value types for the X3DH core: fixed-size
// key types, the signed-prekey and bundle shapes exchanged between client
// and relay, the wire envelope for an initial message, and the sentinel
// errors every other package reports through.
package domain
