package domain

import "errors"

// Sentinel errors surfaced across C1–C6. Callers compare with errors.Is;
// wrapping layers attach context with fmt.Errorf("...: %w", err).
var (
	// ErrBundleVerifyFailed means a prekey signature did not verify under
	// the claimed identity key.
	ErrBundleVerifyFailed = errors.New("brongnal: bundle signature verification failed")

	// ErrUnknownUser means a directory lookup missed on a required identity.
	ErrUnknownUser = errors.New("brongnal: unknown user")

	// ErrUnknownOneTimeKey means the receiver has no private key for the
	// one-time key identifier the sender used.
	ErrUnknownOneTimeKey = errors.New("brongnal: unknown one-time key")

	// ErrDecryptFailed means AEAD tag or associated-data verification
	// failed on the initial ciphertext.
	ErrDecryptFailed = errors.New("brongnal: decryption failed")

	// ErrDirectoryUnavailable means a transient storage failure occurred;
	// retryable at the facade layer.
	ErrDirectoryUnavailable = errors.New("brongnal: directory unavailable")

	// ErrInvalidEncoding means a protocol message failed to parse or a key
	// had the wrong length.
	ErrInvalidEncoding = errors.New("brongnal: invalid encoding")
)
