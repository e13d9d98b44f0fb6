package clientstore

import (
	"bytes"
	"testing"

	"brongnal/internal/crypto"
	"brongnal/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	id, err := crypto.NewIdentity()
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	st, err := New(id)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st
}

func TestConsumeOneTimeKeyOnceOnly(t *testing.T) {
	st := newTestStore(t)
	signed, err := st.ReplenishOneTimeKeys(3)
	if err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if st.OneTimeKeyCount() != 3 {
		t.Fatalf("want 3 otks, got %d", st.OneTimeKeyCount())
	}

	pub := signed.PreKeys[0]
	priv1, err := st.ConsumeOneTimeKey(pub)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if priv1 == (domain.X25519Private{}) {
		t.Fatal("consumed secret is zero")
	}
	if st.OneTimeKeyCount() != 2 {
		t.Fatalf("want 2 otks remaining, got %d", st.OneTimeKeyCount())
	}

	if _, err := st.ConsumeOneTimeKey(pub); err != domain.ErrUnknownOneTimeKey {
		t.Fatalf("want ErrUnknownOneTimeKey, got %v", err)
	}
}

func TestSessionKeyLifecycle(t *testing.T) {
	st := newTestStore(t)
	if _, ok := st.EncryptionKeyFor("bob"); ok {
		t.Fatal("expected no session before SetSessionKey")
	}

	var sk domain.SessionKey
	copy(sk[:], bytes.Repeat([]byte{0x11}, 32))
	st.SetSessionKey("bob", sk)

	got, ok := st.EncryptionKeyFor("bob")
	if !ok || got != sk {
		t.Fatalf("want session key %x, got %x (ok=%v)", sk, got, ok)
	}

	st.DestroySessionKey("bob")
	if _, ok := st.EncryptionKeyFor("bob"); ok {
		t.Fatal("expected no session after DestroySessionKey")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.ReplenishOneTimeKeys(2); err != nil {
		t.Fatalf("replenish: %v", err)
	}
	var sk domain.SessionKey
	copy(sk[:], bytes.Repeat([]byte{0x22}, 32))
	st.SetSessionKey("alice", sk)

	snap := st.Snapshot()
	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.OneTimeKeyCount() != 2 {
		t.Fatalf("want 2 otks after restore, got %d", restored.OneTimeKeyCount())
	}
	got, ok := restored.EncryptionKeyFor("alice")
	if !ok || got != sk {
		t.Fatal("session key lost across snapshot/restore")
	}
	if restored.IdentitySigningKey().EdPub != st.IdentitySigningKey().EdPub {
		t.Fatal("identity key lost across snapshot/restore")
	}
	gotSPK, wantSPK := restored.SignedPrekey(), st.SignedPrekey()
	if gotSPK.PreKey != wantSPK.PreKey || !bytes.Equal(gotSPK.Signature, wantSPK.Signature) {
		t.Fatal("signed prekey lost across snapshot/restore")
	}
}
