package x3dh

import (
	"bytes"
	"errors"
	"testing"

	"brongnal/internal/clientstore"
	"brongnal/internal/crypto"
	"brongnal/internal/domain"
)

// party bundles everything a test needs for one side of a handshake: the
// identity, its client store (so OTK consumption and session-key recording
// exercise the real C4 implementation). Its bundle method builds the
// PreKeyBundle a sender would see.
type party struct {
	identity *crypto.Identity
	store    *clientstore.Store
}

func newParty(t *testing.T) *party {
	t.Helper()
	id, err := crypto.NewIdentity()
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	st, err := clientstore.New(id)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return &party{identity: id, store: st}
}

func (p *party) bundle(t *testing.T, withOTK bool) domain.PreKeyBundle {
	t.Helper()
	b := domain.PreKeyBundle{
		IdentityKey: p.identity.EdPub,
		SPK:         p.store.SignedPrekey(),
	}
	if withOTK {
		signed, err := p.store.ReplenishOneTimeKeys(1)
		if err != nil {
			t.Fatalf("replenish otk: %v", err)
		}
		otk := signed.PreKeys[0]
		b.OneTimeKey = &otk
	}
	return b
}

// TestRoundTripWithOneTimeKey covers scenario A: the 4-DH path with an OTK
// available, and invariant 3 (matching SK on both sides).
func TestRoundTripWithOneTimeKey(t *testing.T) {
	alice := newParty(t)
	bob := newParty(t)

	bobBundle := bob.bundle(t, true)
	if bobBundle.OneTimeKey == nil {
		t.Fatal("expected a one-time key in bob's bundle")
	}
	if bob.store.OneTimeKeyCount() != 1 {
		t.Fatalf("want 1 otk before send, got %d", bob.store.OneTimeKeyCount())
	}

	sendResult, err := Send(alice.identity, bobBundle, []byte("Hello"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	recvResult, err := Receive(
		bob.identity,
		bob.store.PreKeySecret(),
		bob.store,
		bob.store,
		alice.identity.EdPub,
		sendResult.Message,
	)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	if !bytes.Equal(recvResult.Plaintext, []byte("Hello")) {
		t.Fatalf("plaintext mismatch: got %q", recvResult.Plaintext)
	}
	if sendResult.SessionKey != recvResult.SessionKey {
		t.Fatalf("session keys differ: %x != %x", sendResult.SessionKey, recvResult.SessionKey)
	}
	if bob.store.OneTimeKeyCount() != 0 {
		t.Fatalf("want 0 otks after receive, got %d", bob.store.OneTimeKeyCount())
	}
	if got, ok := bob.store.EncryptionKeyFor(senderKey(alice.identity.EdPub)); !ok || got != recvResult.SessionKey {
		t.Fatalf("want session key recorded for sender, got %x (ok=%v)", got, ok)
	}
}

// TestRoundTripWithoutOneTimeKey covers scenario B: the 3-DH path.
func TestRoundTripWithoutOneTimeKey(t *testing.T) {
	alice := newParty(t)
	bob := newParty(t)

	bobBundle := bob.bundle(t, false)
	if bobBundle.OneTimeKey != nil {
		t.Fatal("expected no one-time key")
	}

	sendResult, err := Send(alice.identity, bobBundle, []byte("hi"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	recvResult, err := Receive(
		bob.identity,
		bob.store.PreKeySecret(),
		bob.store,
		bob.store,
		alice.identity.EdPub,
		sendResult.Message,
	)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(recvResult.Plaintext, []byte("hi")) {
		t.Fatalf("plaintext mismatch: got %q", recvResult.Plaintext)
	}
	if sendResult.SessionKey != recvResult.SessionKey {
		t.Fatal("session keys differ in 3-DH path")
	}
	if bob.store.OneTimeKeyCount() != 0 {
		t.Fatal("otk pool should remain empty")
	}
	if got, ok := bob.store.EncryptionKeyFor(senderKey(alice.identity.EdPub)); !ok || got != recvResult.SessionKey {
		t.Fatalf("want session key recorded for sender, got %x (ok=%v)", got, ok)
	}
}

// TestTamperedCiphertextFails covers scenario C: a flipped ciphertext byte
// yields ErrDecryptFailed, the OTK is still consumed regardless, and the
// session key recorded just before the failed open is destroyed again.
func TestTamperedCiphertextFails(t *testing.T) {
	alice := newParty(t)
	bob := newParty(t)

	bobBundle := bob.bundle(t, true)
	sendResult, err := Send(alice.identity, bobBundle, []byte("Hello"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	tampered := sendResult.Message
	tampered.Ciphertext = append([]byte{}, tampered.Ciphertext...)
	tampered.Ciphertext[len(tampered.Ciphertext)-1] ^= 0xFF

	_, err = Receive(bob.identity, bob.store.PreKeySecret(), bob.store, bob.store, alice.identity.EdPub, tampered)
	if !errors.Is(err, domain.ErrDecryptFailed) {
		t.Fatalf("want ErrDecryptFailed, got %v", err)
	}
	if bob.store.OneTimeKeyCount() != 0 {
		t.Fatal("otk must be consumed even though decrypt failed")
	}
	if _, ok := bob.store.EncryptionKeyFor(senderKey(alice.identity.EdPub)); ok {
		t.Fatal("want no session key recorded for sender after decrypt failure")
	}
}

// TestBadSPKSignatureFails covers scenario D: Send must refuse a bundle
// whose SPK signature does not verify, before touching any directory
// state (there is none at this layer to mutate — the assertion here is
// simply that Send never reaches the DH/AEAD steps).
func TestBadSPKSignatureFails(t *testing.T) {
	alice := newParty(t)
	bob := newParty(t)

	bobBundle := bob.bundle(t, false)
	bobBundle.SPK.Signature = append([]byte{}, bobBundle.SPK.Signature...)
	bobBundle.SPK.Signature[0] ^= 0xFF

	if _, err := Send(alice.identity, bobBundle, []byte("hi")); err == nil {
		t.Fatal("expected bundle verify failure")
	}
}

// TestOneTimeKeyDoubleConsumeFails covers scenario F / invariant 1: a
// second ConsumeOneTimeKey on the same public key always fails.
func TestOneTimeKeyDoubleConsumeFails(t *testing.T) {
	bob := newParty(t)
	signed, err := bob.store.ReplenishOneTimeKeys(1)
	if err != nil {
		t.Fatalf("replenish: %v", err)
	}
	pub := signed.PreKeys[0]

	if _, err := bob.store.ConsumeOneTimeKey(pub); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := bob.store.ConsumeOneTimeKey(pub); err != domain.ErrUnknownOneTimeKey {
		t.Fatalf("want ErrUnknownOneTimeKey on second consume, got %v", err)
	}
}

// TestUnknownOneTimeKeyFails exercises the receiver-side failure when the
// sender names an OTK the receiver never issued (or already dropped).
func TestUnknownOneTimeKeyFails(t *testing.T) {
	alice := newParty(t)
	bob := newParty(t)

	bobBundle := bob.bundle(t, false)
	// Name an OTK bob never issued; bob's store has nothing to consume.
	_, phantomPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("generate phantom otk: %v", err)
	}
	bobBundle.OneTimeKey = &phantomPub

	sendResult, err := Send(alice.identity, bobBundle, []byte("Hello"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	_, err = Receive(bob.identity, bob.store.PreKeySecret(), bob.store, bob.store, alice.identity.EdPub, sendResult.Message)
	if !errors.Is(err, domain.ErrUnknownOneTimeKey) {
		t.Fatalf("want ErrUnknownOneTimeKey, got %v", err)
	}
}
