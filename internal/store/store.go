package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"brongnal/internal/clientstore"
	"brongnal/internal/domain"
)

const (
	fileName = "identity.json.enc"
	fileMode = 0o600

	// Argon2id parameters. 64 MiB memory, 3 passes, single lane — adequate
	// for an interactive CLI unlock, not a server-side login path.
	argonTime    = 3
	argonMemKiB  = 64 * 1024
	argonThreads = 1
	argonKeyLen  = chacha20poly1305.KeySize
	saltLen      = 16
)

// ErrWrongPassphrase is returned by Load when the passphrase is incorrect
// or the on-disk file has been corrupted or tampered with.
var ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted identity file")

// envelope is the on-disk JSON structure: an Argon2id salt plus a sealed
// ciphertext. The nonce is zero because the Argon2id-derived key is
// salt-bound and used exactly once per file.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	Cipher []byte `json:"cipher"`
}

// onDiskState is the plaintext shape sealed inside an envelope. Fixed-size
// key arrays are flattened to []byte and fixed-size maps to slices because
// encoding/json cannot marshal a map keyed by an array type.
type onDiskState struct {
	Username string         `json:"username"`
	EdPriv   []byte         `json:"ed_priv"`
	EdPub    []byte         `json:"ed_pub"`
	SPKPriv  []byte         `json:"spk_priv"`
	SPKPub   []byte         `json:"spk_pub"`
	SPKSig   []byte         `json:"spk_sig"`
	OTKs     []otkEntry     `json:"otks"`
	Sessions []sessionEntry `json:"sessions"`
}

type otkEntry struct {
	Pub  []byte `json:"pub"`
	Priv []byte `json:"priv"`
}

type sessionEntry struct {
	Peer string `json:"peer"`
	Key  []byte `json:"key"`
}

// Identity bundles a loaded clientstore.Store with the username it was
// registered under.
type Identity struct {
	Username string
	Store    *clientstore.Store
}

func path(homeDir string) string { return filepath.Join(homeDir, fileName) }

// Save encrypts and writes username and st's full state to homeDir,
// overwriting any existing file there.
func Save(homeDir, passphrase, username string, st *clientstore.Store) error {
	snap := st.Snapshot()

	disk := onDiskState{
		Username: username,
		EdPriv:   snap.EdPriv.Slice(),
		EdPub:    snap.EdPub.Slice(),
		SPKPriv:  snap.SPKPriv.Slice(),
		SPKPub:   snap.SPK.PreKey.Slice(),
		SPKSig:   snap.SPK.Signature,
	}
	for pub, priv := range snap.OTKs {
		disk.OTKs = append(disk.OTKs, otkEntry{Pub: append([]byte{}, pub[:]...), Priv: append([]byte{}, priv[:]...)})
	}
	for peer, key := range snap.Sessions {
		disk.Sessions = append(disk.Sessions, sessionEntry{Peer: peer, Key: append([]byte{}, key[:]...)})
	}

	raw, err := json.Marshal(disk)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("store: salt: %w", err)
	}
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemKiB, argonThreads, argonKeyLen)
	defer zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("store: new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	cipher := aead.Seal(nil, nonce, raw, salt)

	env, err := json.MarshalIndent(envelope{V: 1, Salt: salt, Cipher: cipher}, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal envelope: %w", err)
	}

	if err := os.MkdirAll(homeDir, 0o700); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}
	tmp := path(homeDir) + ".tmp"
	if err := os.WriteFile(tmp, env, fileMode); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	if err := os.Rename(tmp, path(homeDir)); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// Load decrypts and reconstructs the client identity persisted at homeDir.
func Load(homeDir, passphrase string) (*Identity, error) {
	raw, err := os.ReadFile(path(homeDir))
	if err != nil {
		return nil, fmt.Errorf("store: read: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("store: unmarshal envelope: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), env.Salt, argonTime, argonMemKiB, argonThreads, argonKeyLen)
	defer zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("store: new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	plain, err := aead.Open(nil, nonce, env.Cipher, env.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	var disk onDiskState
	if err := json.Unmarshal(plain, &disk); err != nil {
		return nil, fmt.Errorf("store: unmarshal state: %w", err)
	}

	snap := clientstore.Snapshot{
		EdPriv:   domain.Ed25519Private(disk.EdPriv),
		EdPub:    domain.MustEd25519Public(disk.EdPub),
		SPKPriv:  domain.X25519Private(disk.SPKPriv),
		SPK:      domain.SignedPreKey{PreKey: domain.MustX25519Public(disk.SPKPub), Signature: disk.SPKSig},
		OTKs:     make(map[domain.X25519Public]domain.X25519Private, len(disk.OTKs)),
		Sessions: make(map[string]domain.SessionKey, len(disk.Sessions)),
	}
	for _, e := range disk.OTKs {
		snap.OTKs[domain.MustX25519Public(e.Pub)] = domain.X25519Private(e.Priv)
	}
	for _, e := range disk.Sessions {
		snap.Sessions[e.Peer] = domain.SessionKey(e.Key)
	}

	st, err := clientstore.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("store: restore: %w", err)
	}
	return &Identity{Username: disk.Username, Store: st}, nil
}

// Exists reports whether an identity file is already present at homeDir.
func Exists(homeDir string) bool {
	_, err := os.Stat(path(homeDir))
	return err == nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
