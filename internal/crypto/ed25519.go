package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"brongnal/internal/domain"
)

// GenerateEd25519 draws a fresh Ed25519 signing key pair. This is the only
// place a long-term or signed-prekey signing key is minted; NewIdentity and
// every test identity in the repo route through it rather than calling
// crypto/ed25519 directly, so there is one place to change if the seed
// source ever needs to.
func GenerateEd25519() (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// SignEd25519 signs msg with priv. Used by bundle.SignBundle to cover a
// signed prekey or one-time prekey batch; callers needing a raw Ed25519
// signature over arbitrary bytes use it directly.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv.Slice()), msg)
}

// VerifyEd25519 reports whether sig is a valid Ed25519 signature over msg
// under pub. Used by bundle.VerifyBundle; false covers both a malformed and
// a forged signature, the caller maps it to domain.ErrBundleVerifyFailed.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub.Slice()), msg, sig)
}
