package crypto

import (
	"brongnal/internal/domain"
)

// Identity is a client's long-term key material: an Ed25519 signing key
// (the published IdentityKey) and the X25519 static secret derived from it
// for use directly in X3DH Diffie-Hellman. See CrossCurvePrivate for how
// the X25519 half is obtained.
type Identity struct {
	EdPriv domain.Ed25519Private
	EdPub  domain.Ed25519Public

	XPriv domain.X25519Private
	XPub  domain.X25519Public
}

// NewIdentity generates a fresh Ed25519 signing key and derives the
// corresponding X25519 static secret via CrossCurvePrivate/CrossCurvePublic,
// so both halves trace back to the same signing key.
func NewIdentity() (*Identity, error) {
	edPriv, edPub, err := GenerateEd25519()
	if err != nil {
		return nil, err
	}

	id := &Identity{
		EdPub:  edPub,
		EdPriv: edPriv,
	}

	xpriv, err := CrossCurvePrivate(id.EdPriv)
	if err != nil {
		return nil, err
	}
	id.XPriv = xpriv

	xpub, err := CrossCurvePublic(id.EdPub)
	if err != nil {
		return nil, err
	}
	id.XPub = xpub

	return id, nil
}
