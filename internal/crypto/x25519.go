package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"brongnal/internal/domain"
)

// GenerateX25519 draws a random 32-byte scalar, clamps it per RFC 7748
// section 5, and multiplies it against the curve basepoint to produce the
// matching public key.
func GenerateX25519() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, fmt.Errorf("x25519: generate private key: %w", err)
	}
	ClampX25519PrivateKey(&priv)
	pubBytes, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return priv, pub, fmt.Errorf("x25519: compute public key: %w", err)
	}
	copy(pub[:], pubBytes)
	return priv, pub, nil
}

// DH performs a Curve25519 scalar multiplication of priv against pub and
// returns the resulting shared secret. Per RFC 7748 section 6.1, a peer
// supplying a low-order or otherwise degenerate public key can force the
// output to all zeros; DH rejects that output rather than letting a session
// key silently derive from a known constant.
func DH(priv domain.X25519Private, pub domain.X25519Public) (shared [32]byte, err error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return shared, fmt.Errorf("x25519: DH failed: %w", err)
	}
	var zero [32]byte
	if subtle.ConstantTimeCompare(secret, zero[:]) == 1 {
		return shared, fmt.Errorf("x25519: DH: %w", domain.ErrInvalidEncoding)
	}
	copy(shared[:], secret)
	return shared, nil
}

// ClampX25519PrivateKey forces k into the RFC 7748 clamped form in place:
// the three low bits of the first byte and the top bit of the last byte
// cleared, and the second-highest bit of the last byte set.
func ClampX25519PrivateKey(k *domain.X25519Private) {
	kb := (*k)[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
