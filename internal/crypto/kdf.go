package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"brongnal/internal/domain"
)

// kdfInfo is the Brongnal X3DH HKDF info string. Normative; changing it
// breaks interop with anything that derived a session key before the
// change.
var kdfInfo = []byte("Brongnal")

// DeriveRootKey implements the X3DH KDF contract: the input key material is
// 32 bytes of 0xFF followed by the concatenated DH outputs (in the
// DH1‖DH2‖DH3‖[DH4] order the caller already fixed), the salt is 32 zero
// bytes, and the info string is "Brongnal". 32 bytes of HKDF-SHA256 output
// are returned.
func DeriveRootKey(dhConcat []byte) domain.SessionKey {
	prefix := make([]byte, 32)
	for i := range prefix {
		prefix[i] = 0xFF
	}
	ikm := append(prefix, dhConcat...)
	salt := make([]byte, sha256.Size)

	r := hkdf.New(sha256.New, ikm, salt, kdfInfo)
	var out domain.SessionKey
	if _, err := io.ReadFull(r, out[:]); err != nil {
		// hkdf.New/Read only fail if the requested length exceeds
		// 255*hashLen, which 32 bytes never does.
		panic(fmt.Errorf("crypto: hkdf read: %w", err))
	}
	Wipe(ikm)
	return out
}

// Seal encrypts plaintext under key with ChaCha20-Poly1305, binding aad,
// and returns nonce‖ciphertext‖tag as one opaque blob. A fresh random
// 96-bit nonce is generated per call.
func Seal(key domain.SessionKey, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open parses nonce‖ciphertext‖tag from sealed and authenticates/decrypts
// it under key and aad. Returns domain.ErrDecryptFailed on any
// authentication failure.
func Open(key domain.SessionKey, aad, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, domain.ErrDecryptFailed
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, domain.ErrDecryptFailed
	}
	return pt, nil
}
