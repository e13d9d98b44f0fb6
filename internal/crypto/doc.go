// Package crypto exposes the primitives used by the X3DH core: X25519
// generation/clamping/DH, Ed25519 generation/sign/verify, the Ed25519 to
// X25519 cross-curve conversion for both key halves, the Brongnal HKDF-
// SHA256 contract, and ChaCha20-Poly1305 sealing.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie-Hellman (GenerateX25519,
//     ClampX25519PrivateKey, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - Ed25519 to X25519 cross-curve conversion (CrossCurvePrivate,
//     CrossCurvePublic)
//   - The root-key derivation function (DeriveRootKey) and AEAD seal/open
//     (Seal, Open)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// Keys are returned as fixed-size array types defined in internal/domain to
// avoid accidental reallocations; signatures and sealed ciphertexts are
// byte slices. Callers should treat returned secrets as
// sensitive and call Wipe once a buffer is no longer needed.
package crypto
