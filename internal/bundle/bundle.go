package bundle

import (
	"fmt"

	"brongnal/internal/crypto"
	"brongnal/internal/domain"
)

// concatPublics joins a list of X25519 public keys in listed order, the
// canonical byte-string the signature in SignedPreKeys covers.
func concatPublics(pubs []domain.X25519Public) []byte {
	out := make([]byte, 0, 32*len(pubs))
	for _, p := range pubs {
		out = append(out, p[:]...)
	}
	return out
}

// SignBundle signs the ordered concatenation of pubs under signingKey. Only
// the public halves are passed in and signed; CreatePreKeyBundle returns
// the matching secrets separately as OneTimeKeyPairs.
func SignBundle(signingKey domain.Ed25519Private, pubs []domain.X25519Public) []byte {
	return crypto.SignEd25519(signingKey, concatPublics(pubs))
}

// VerifyBundle checks sig over the ordered concatenation of pubs under
// identityKey. Returns domain.ErrBundleVerifyFailed if it does not verify.
func VerifyBundle(identityKey domain.Ed25519Public, pubs []domain.X25519Public, sig []byte) error {
	if len(pubs) == 0 {
		return fmt.Errorf("bundle: %w: empty prekey list", domain.ErrBundleVerifyFailed)
	}
	if !crypto.VerifyEd25519(identityKey, concatPublics(pubs), sig) {
		return domain.ErrBundleVerifyFailed
	}
	return nil
}

// VerifySignedPreKey checks a single SignedPreKey's signature under
// identityKey.
func VerifySignedPreKey(identityKey domain.Ed25519Public, spk domain.SignedPreKey) error {
	return VerifyBundle(identityKey, []domain.X25519Public{spk.PreKey}, spk.Signature)
}

// CreatePreKeyBundle generates n fresh X25519 keypairs and signs their
// public halves under signingKey, in generation order. n must be positive.
func CreatePreKeyBundle(signingKey domain.Ed25519Private, n int) (pairs []domain.OneTimeKeyPair, signed domain.SignedPreKeys, err error) {
	if n <= 0 {
		return nil, signed, fmt.Errorf("bundle: n must be positive, got %d", n)
	}
	pairs = make([]domain.OneTimeKeyPair, n)
	pubs := make([]domain.X25519Public, n)
	for i := 0; i < n; i++ {
		priv, pub, genErr := crypto.GenerateX25519()
		if genErr != nil {
			return nil, signed, fmt.Errorf("bundle: generate one-time key %d: %w", i, genErr)
		}
		pairs[i] = domain.OneTimeKeyPair{Priv: priv, Pub: pub}
		pubs[i] = pub
	}
	signed = domain.SignedPreKeys{
		PreKeys:   pubs,
		Signature: SignBundle(signingKey, pubs),
	}
	return pairs, signed, nil
}

// CreateSignedPreKey generates a single fresh X25519 keypair and signs its
// public half under signingKey.
func CreateSignedPreKey(signingKey domain.Ed25519Private) (priv domain.X25519Private, spk domain.SignedPreKey, err error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return priv, spk, fmt.Errorf("bundle: generate signed prekey: %w", err)
	}
	spk = domain.SignedPreKey{PreKey: pub, Signature: SignBundle(signingKey, []domain.X25519Public{pub})}
	return priv, spk, nil
}
