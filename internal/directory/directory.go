package directory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"brongnal/internal/bundle"
	"brongnal/internal/domain"
)

// DB is the SQLite-backed prekey directory and message queue.
type DB struct {
	db *sql.DB
}

// New opens (and if necessary creates) the SQLite database at path,
// applies the WAL/synchronous/foreign_keys pragmas, and creates the
// schema. A single-connection pool is enforced: SQLite serialises writers
// internally, but database/sql's default pool can hand the FIFO-pop
// transaction in RequestPreKeys a second connection mid-flight, which
// would defeat the BEGIN IMMEDIATE isolation below.
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("directory: open: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS user (
		identity       TEXT PRIMARY KEY,
		identity_key   BLOB NOT NULL,
		signed_pre_key BLOB NOT NULL,
		created_at     INTEGER NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("directory: create user table: %w", err)
	}
	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS pre_key (
		key           BLOB PRIMARY KEY,
		user_identity TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		FOREIGN KEY(user_identity) REFERENCES user(identity)
	)`); err != nil {
		return nil, fmt.Errorf("directory: create pre_key table: %w", err)
	}
	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS message (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		user_identity TEXT NOT NULL,
		envelope      BLOB NOT NULL,
		created_at    INTEGER NOT NULL,
		FOREIGN KEY(user_identity) REFERENCES user(identity)
	)`); err != nil {
		return nil, fmt.Errorf("directory: create message table: %w", err)
	}

	return &DB{db: sqlDB}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

func encodeSPK(spk domain.SignedPreKey) ([]byte, error) { return json.Marshal(spk) }

func decodeSPK(b []byte) (domain.SignedPreKey, error) {
	var spk domain.SignedPreKey
	err := json.Unmarshal(b, &spk)
	return spk, err
}

// Register inserts a new user row after verifying spk under ik. A
// duplicate register for an existing identity is treated as an
// idempotent no-op: the stored identity_key is never overwritten silently
// (see DESIGN.md for why idempotent-ignore was chosen over
// ErrAlreadyRegistered).
func (d *DB) Register(identity string, ik domain.Ed25519Public, spk domain.SignedPreKey) error {
	if err := bundle.VerifySignedPreKey(ik, spk); err != nil {
		return fmt.Errorf("directory: register: %w", err)
	}

	spkBytes, err := encodeSPK(spk)
	if err != nil {
		return fmt.Errorf("directory: register: encode spk: %w", err)
	}

	_, err = d.db.Exec(
		`INSERT INTO user (identity, identity_key, signed_pre_key, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(identity) DO NOTHING`,
		identity, ik.Slice(), spkBytes, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("directory: register: %w", domain.ErrDirectoryUnavailable)
	}
	return nil
}

// UpdatePreKey verifies spk and replaces identity's current signed
// prekey. Fails with domain.ErrUnknownUser if identity does not exist.
func (d *DB) UpdatePreKey(identity string, spk domain.SignedPreKey) error {
	ik, _, err := d.getCurrentKeys(identity)
	if err != nil {
		return err
	}
	if err := bundle.VerifySignedPreKey(ik, spk); err != nil {
		return fmt.Errorf("directory: update pre key: %w", err)
	}

	spkBytes, err := encodeSPK(spk)
	if err != nil {
		return fmt.Errorf("directory: update pre key: encode spk: %w", err)
	}
	res, err := d.db.Exec(`UPDATE user SET signed_pre_key = ? WHERE identity = ?`, spkBytes, identity)
	if err != nil {
		return fmt.Errorf("directory: update pre key: %w", domain.ErrDirectoryUnavailable)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("directory: update pre key: %w", domain.ErrDirectoryUnavailable)
	}
	if n == 0 {
		return fmt.Errorf("directory: update pre key: %w", domain.ErrUnknownUser)
	}
	return nil
}

// AddOneTimeKeys verifies the signature over keys' concatenation under
// identity's stored identity key and appends one row per key. Fails with
// domain.ErrUnknownUser if identity does not exist.
func (d *DB) AddOneTimeKeys(identity string, keys domain.SignedPreKeys) error {
	ik, _, err := d.getCurrentKeys(identity)
	if err != nil {
		return err
	}
	if err := bundle.VerifyBundle(ik, keys.PreKeys, keys.Signature); err != nil {
		return fmt.Errorf("directory: add one time keys: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("directory: add one time keys: %w", domain.ErrDirectoryUnavailable)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO pre_key (key, user_identity, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("directory: add one time keys: %w", domain.ErrDirectoryUnavailable)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, pub := range keys.PreKeys {
		// created_at is a seconds-resolution monotonic ordering column, not
		// a security timestamp; bump by i so a large batch still FIFOs.
		if _, err := stmt.Exec(pub.Slice(), identity, now+int64(i)); err != nil {
			return fmt.Errorf("directory: add one time keys: %w", domain.ErrDirectoryUnavailable)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("directory: add one time keys: %w", domain.ErrDirectoryUnavailable)
	}
	return nil
}

func (d *DB) getCurrentKeys(identity string) (domain.Ed25519Public, domain.SignedPreKey, error) {
	var ikBytes, spkBytes []byte
	err := d.db.QueryRow(`SELECT identity_key, signed_pre_key FROM user WHERE identity = ?`, identity).
		Scan(&ikBytes, &spkBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ed25519Public{}, domain.SignedPreKey{}, fmt.Errorf("directory: %w", domain.ErrUnknownUser)
	}
	if err != nil {
		return domain.Ed25519Public{}, domain.SignedPreKey{}, fmt.Errorf("directory: %w", domain.ErrDirectoryUnavailable)
	}
	spk, err := decodeSPK(spkBytes)
	if err != nil {
		return domain.Ed25519Public{}, domain.SignedPreKey{}, fmt.Errorf("directory: %w", domain.ErrInvalidEncoding)
	}
	return domain.MustEd25519Public(ikBytes), spk, nil
}

// RequestPreKeys returns identity's current (identity_key, spk) plus one
// one-time key popped FIFO from the pool, atomically removing the popped
// row so no two concurrent callers can receive the same key. If the pool
// is empty, OneTimeKey is nil. Fails with domain.ErrUnknownUser if
// identity does not exist.
func (d *DB) RequestPreKeys(identity string) (domain.PreKeyBundle, error) {
	var result domain.PreKeyBundle

	tx, err := d.db.Begin()
	if err != nil {
		return result, fmt.Errorf("directory: request pre keys: %w", domain.ErrDirectoryUnavailable)
	}
	defer tx.Rollback()

	var ikBytes, spkBytes []byte
	err = tx.QueryRow(`SELECT identity_key, signed_pre_key FROM user WHERE identity = ?`, identity).
		Scan(&ikBytes, &spkBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return result, fmt.Errorf("directory: request pre keys: %w", domain.ErrUnknownUser)
	}
	if err != nil {
		return result, fmt.Errorf("directory: request pre keys: %w", domain.ErrDirectoryUnavailable)
	}
	spk, err := decodeSPK(spkBytes)
	if err != nil {
		return result, fmt.Errorf("directory: request pre keys: %w", domain.ErrInvalidEncoding)
	}

	var otkBytes []byte
	err = tx.QueryRow(`DELETE FROM pre_key WHERE key = (
		SELECT key FROM pre_key WHERE user_identity = ? ORDER BY created_at, rowid LIMIT 1
	) RETURNING key`, identity).Scan(&otkBytes)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Pool empty; result.OneTimeKey stays nil.
	case err != nil:
		return result, fmt.Errorf("directory: request pre keys: %w", domain.ErrDirectoryUnavailable)
	default:
		otk := domain.MustX25519Public(otkBytes)
		result.OneTimeKey = &otk
	}

	if err := tx.Commit(); err != nil {
		return domain.PreKeyBundle{}, fmt.Errorf("directory: request pre keys: %w", domain.ErrDirectoryUnavailable)
	}

	result.IdentityKey = domain.MustEd25519Public(ikBytes)
	result.SPK = spk
	return result, nil
}

// OneTimeKeyCount returns the number of one-time keys currently pooled for
// identity, for metrics/diagnostics only.
func (d *DB) OneTimeKeyCount(identity string) (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM pre_key WHERE user_identity = ?`, identity).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("directory: one time key count: %w", domain.ErrDirectoryUnavailable)
	}
	return n, nil
}

// SendMessage enqueues msg for recipient. Fails with domain.ErrUnknownUser
// if recipient does not exist.
func (d *DB) SendMessage(recipient string, msg domain.InitialMessage) error {
	envelope, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("directory: send message: %w", domain.ErrInvalidEncoding)
	}

	res, err := d.db.Exec(
		`INSERT INTO message (user_identity, envelope, created_at)
		 SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM user WHERE identity = ?)`,
		recipient, envelope, time.Now().Unix(), recipient,
	)
	if err != nil {
		return fmt.Errorf("directory: send message: %w", domain.ErrDirectoryUnavailable)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("directory: send message: %w", domain.ErrDirectoryUnavailable)
	}
	if n == 0 {
		return fmt.Errorf("directory: send message: %w", domain.ErrUnknownUser)
	}
	return nil
}

// RetrieveMessages deletes and returns every message queued for identity,
// in insertion order, as a single transaction. A following call returns
// the empty list.
func (d *DB) RetrieveMessages(identity string) ([]domain.InitialMessage, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("directory: retrieve messages: %w", domain.ErrDirectoryUnavailable)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`DELETE FROM message WHERE user_identity = ? RETURNING envelope, id`, identity,
	)
	if err != nil {
		return nil, fmt.Errorf("directory: retrieve messages: %w", domain.ErrDirectoryUnavailable)
	}

	type ordered struct {
		id  int64
		msg domain.InitialMessage
	}
	var out []ordered
	for rows.Next() {
		var envelope []byte
		var id int64
		if err := rows.Scan(&envelope, &id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("directory: retrieve messages: %w", domain.ErrDirectoryUnavailable)
		}
		var msg domain.InitialMessage
		if err := json.Unmarshal(envelope, &msg); err != nil {
			rows.Close()
			return nil, fmt.Errorf("directory: retrieve messages: %w", domain.ErrInvalidEncoding)
		}
		out = append(out, ordered{id: id, msg: msg})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("directory: retrieve messages: %w", domain.ErrDirectoryUnavailable)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("directory: retrieve messages: %w", domain.ErrDirectoryUnavailable)
	}

	// RETURNING order is unspecified for a bulk DELETE; sort by the
	// autoincrement id to guarantee insertion order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].id < out[j-1].id; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}

	msgs := make([]domain.InitialMessage, len(out))
	for i, o := range out {
		msgs[i] = o.msg
	}
	return msgs, nil
}
