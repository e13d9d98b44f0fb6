package crypto

import (
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"

	"brongnal/internal/domain"
)

// CrossCurvePrivate turns an Ed25519 signing key into the X25519 static
// secret that corresponds to the same scalar the Ed25519 public key
// commits to: SHA-512 the 32-byte seed, clamp the low 32 bytes per
// RFC 7748. This is the standard XEdDSA-style derivation (mirrored from
// SAGE-X-project-sage's crypto/keys/x25519.go), not a raw reuse of the
// Ed25519 private key bytes.
func CrossCurvePrivate(priv domain.Ed25519Private) (domain.X25519Private, error) {
	var out domain.X25519Private
	h := sha512.Sum512(priv.Seed())
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	copy(out[:], h[:32])
	return out, nil
}

// CrossCurvePublic converts an Ed25519 public key (an Edwards point) to its
// Montgomery-form X25519 public key via the birational map the two curve
// representations share.
func CrossCurvePublic(pub domain.Ed25519Public) (domain.X25519Public, error) {
	var out domain.X25519Public
	p, err := new(edwards25519.Point).SetBytes(pub.Slice())
	if err != nil {
		return out, fmt.Errorf("crypto: invalid Ed25519 public key: %w", err)
	}
	copy(out[:], p.BytesMontgomery())
	return out, nil
}
