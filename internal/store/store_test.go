package store

import (
	"testing"

	"brongnal/internal/clientstore"
	"brongnal/internal/crypto"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	id, err := crypto.NewIdentity()
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	st, err := clientstore.New(id)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := st.ReplenishOneTimeKeys(5); err != nil {
		t.Fatalf("replenish: %v", err)
	}

	if err := Save(dir, "correct horse battery staple", "alice", st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("want Exists true after Save")
	}

	loaded, err := Load(dir, "correct horse battery staple")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Username != "alice" {
		t.Fatalf("want username alice, got %q", loaded.Username)
	}
	if loaded.Store.IdentitySigningKey().EdPub != id.EdPub {
		t.Fatal("identity key lost across save/load")
	}
	if loaded.Store.OneTimeKeyCount() != 5 {
		t.Fatalf("want 5 otks, got %d", loaded.Store.OneTimeKeyCount())
	}
}

func TestLoadWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	id, err := crypto.NewIdentity()
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	st, err := clientstore.New(id)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := Save(dir, "right-passphrase", "bob", st); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := Load(dir, "wrong-passphrase"); err != ErrWrongPassphrase {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
}

func TestExistsFalseBeforeSave(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Fatal("want Exists false before any Save")
	}
}
