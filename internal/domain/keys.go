package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// marshalB64 and unmarshalB64 give the fixed-size key arrays below the same
// base64-string JSON encoding encoding/json already gives []byte, which
// arrays don't get for free.
func marshalB64(b []byte) ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func unmarshalB64(data []byte, out []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("domain: invalid base64 key encoding: %w", err)
	}
	if len(decoded) != len(out) {
		return fmt.Errorf("domain: want %d key bytes, got %d", len(out), len(decoded))
	}
	copy(out, decoded)
	return nil
}

// X25519Public is a Curve25519 Montgomery-form public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

func (p X25519Public) MarshalJSON() ([]byte, error)     { return marshalB64(p[:]) }
func (p *X25519Public) UnmarshalJSON(data []byte) error { return unmarshalB64(data, p[:]) }

// X25519Private is a clamped Curve25519 static secret.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 verifying key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

func (p Ed25519Public) MarshalJSON() ([]byte, error)     { return marshalB64(p[:]) }
func (p *Ed25519Public) UnmarshalJSON(data []byte) error { return unmarshalB64(data, p[:]) }

// Ed25519Private is an Ed25519 signing key (seed || public, 64 bytes, the
// crypto/ed25519 on-disk convention).
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// Seed returns the 32-byte Ed25519 seed embedded in the private key.
func (k Ed25519Private) Seed() []byte { return k[:32] }

func MustX25519Public(b []byte) X25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("domain: X25519 public key: want 32 bytes, got %d", len(b)))
	}
	var out X25519Public
	copy(out[:], b)
	return out
}

func MustEd25519Public(b []byte) Ed25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("domain: Ed25519 public key: want 32 bytes, got %d", len(b)))
	}
	var out Ed25519Public
	copy(out[:], b)
	return out
}

// SessionKey is the 32-byte shared secret an X3DH run produces.
type SessionKey [32]byte

// Slice returns the key as a []byte.
func (k SessionKey) Slice() []byte { return k[:] }
