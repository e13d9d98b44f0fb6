package clientstore

import (
	"fmt"
	"sync"

	"brongnal/internal/bundle"
	"brongnal/internal/crypto"
	"brongnal/internal/domain"
)

// Store is the client-side key-material manager. A receive task and a send
// task may touch it concurrently (spec §5), so every operation on mutable
// state takes mu. The identity key pair is set at construction and never
// changed, so IdentitySigningKey reads it without locking.
type Store struct {
	mu sync.Mutex

	identity *crypto.Identity

	spkPriv domain.X25519Private
	spk     domain.SignedPreKey

	otks map[domain.X25519Public]domain.X25519Private

	sessions map[string]domain.SessionKey
}

// New creates a store around identity with a freshly generated signed
// prekey.
func New(identity *crypto.Identity) (*Store, error) {
	spkPriv, spk, err := bundle.CreateSignedPreKey(identity.EdPriv)
	if err != nil {
		return nil, fmt.Errorf("clientstore: new: %w", err)
	}
	return &Store{
		identity: identity,
		spkPriv:  spkPriv,
		spk:      spk,
		otks:     make(map[domain.X25519Public]domain.X25519Private),
		sessions: make(map[string]domain.SessionKey),
	}, nil
}

// IdentitySigningKey returns a read-only view of the identity key pair.
func (s *Store) IdentitySigningKey() *crypto.Identity {
	return s.identity
}

// PreKeySecret returns the current signed prekey's private half.
func (s *Store) PreKeySecret() domain.X25519Private {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spkPriv
}

// SignedPrekey returns the current SPK public half and signature.
func (s *Store) SignedPrekey() domain.SignedPreKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spk
}

// ConsumeOneTimeKey atomically removes and returns the secret for pub. A
// second call with the same pub always fails with
// domain.ErrUnknownOneTimeKey — this is the central forward-secrecy
// property of the store.
func (s *Store) ConsumeOneTimeKey(pub domain.X25519Public) (domain.X25519Private, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.otks[pub]
	if !ok {
		return domain.X25519Private{}, domain.ErrUnknownOneTimeKey
	}
	delete(s.otks, pub)
	return secret, nil
}

// ReplenishOneTimeKeys generates n new one-time keypairs, inserts their
// secrets into the store, and returns the signed public list to publish.
func (s *Store) ReplenishOneTimeKeys(n int) (domain.SignedPreKeys, error) {
	pairs, signed, err := bundle.CreatePreKeyBundle(s.identity.EdPriv, n)
	if err != nil {
		return signed, fmt.Errorf("clientstore: replenish: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.otks[p.Pub] = p.Priv
	}
	return signed, nil
}

// OneTimeKeyCount returns the number of one-time keys currently held,
// mainly for tests and local diagnostics.
func (s *Store) OneTimeKeyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.otks)
}

// SetSessionKey records the session key derived for peer.
func (s *Store) SetSessionKey(peer string, sk domain.SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[peer] = sk
}

// EncryptionKeyFor returns the session key recorded for peer, or false if
// no session is established.
func (s *Store) EncryptionKeyFor(peer string) (domain.SessionKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.sessions[peer]
	return sk, ok
}

// DestroySessionKey deletes the session key recorded for peer. Called when
// AEAD decryption of the bound initial ciphertext fails.
func (s *Store) DestroySessionKey(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, peer)
}

// Snapshot is the full serializable state of a Store. It exists so a
// long-lived client (e.g. the ciphera CLI, which re-execs a process per
// command) can persist its identity and session material across restarts
// without internal/store reaching into Store's unexported fields.
type Snapshot struct {
	EdPriv   domain.Ed25519Private
	EdPub    domain.Ed25519Public
	SPKPriv  domain.X25519Private
	SPK      domain.SignedPreKey
	OTKs     map[domain.X25519Public]domain.X25519Private
	Sessions map[string]domain.SessionKey
}

// Snapshot copies out the store's full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	otks := make(map[domain.X25519Public]domain.X25519Private, len(s.otks))
	for k, v := range s.otks {
		otks[k] = v
	}
	sessions := make(map[string]domain.SessionKey, len(s.sessions))
	for k, v := range s.sessions {
		sessions[k] = v
	}
	return Snapshot{
		EdPriv:   s.identity.EdPriv,
		EdPub:    s.identity.EdPub,
		SPKPriv:  s.spkPriv,
		SPK:      s.spk,
		OTKs:     otks,
		Sessions: sessions,
	}
}

// Restore rebuilds a Store from a Snapshot produced by Snapshot. The X25519
// identity half is re-derived from the Ed25519 seed via CrossCurvePrivate
// rather than persisted redundantly.
func Restore(snap Snapshot) (*Store, error) {
	xpriv, err := crypto.CrossCurvePrivate(snap.EdPriv)
	if err != nil {
		return nil, fmt.Errorf("clientstore: restore: %w", err)
	}
	xpub, err := crypto.CrossCurvePublic(snap.EdPub)
	if err != nil {
		return nil, fmt.Errorf("clientstore: restore: %w", err)
	}

	otks := make(map[domain.X25519Public]domain.X25519Private, len(snap.OTKs))
	for k, v := range snap.OTKs {
		otks[k] = v
	}
	sessions := make(map[string]domain.SessionKey, len(snap.Sessions))
	for k, v := range snap.Sessions {
		sessions[k] = v
	}

	return &Store{
		identity: &crypto.Identity{
			EdPriv: snap.EdPriv,
			EdPub:  snap.EdPub,
			XPriv:  xpriv,
			XPub:   xpub,
		},
		spkPriv:  snap.SPKPriv,
		spk:      snap.SPK,
		otks:     otks,
		sessions: sessions,
	}, nil
}
