package domain

// SignedPreKey is a single medium-term X25519 public key together with the
// Ed25519 signature the owner produced over it.
type SignedPreKey struct {
	PreKey    X25519Public `json:"pre_key"`
	Signature []byte       `json:"signature"`
}

// SignedPreKeys is a signed, ordered batch of one-time prekeys. The
// signature covers the concatenation of PreKeys in list order.
type SignedPreKeys struct {
	PreKeys   []X25519Public `json:"pre_keys"`
	Signature []byte         `json:"signature"`
}

// PreKeyBundle is what the relay hands back to a sender requesting a
// recipient's key material. OneTimeKey is nil if the recipient's pool was
// empty at the time of the request.
type PreKeyBundle struct {
	IdentityKey Ed25519Public `json:"identity_key"`
	SPK         SignedPreKey  `json:"spk"`
	OneTimeKey  *X25519Public `json:"one_time_key,omitempty"`
}

// OneTimeKeyPair is a freshly generated one-time prekey, kept together so
// callers can persist both halves atomically.
type OneTimeKeyPair struct {
	Priv X25519Private
	Pub  X25519Public
}

// InitialMessage is the X3DH sender's first payload to a recipient: the
// handshake parameters plus the AEAD ciphertext of the plaintext.
type InitialMessage struct {
	SenderIdentityKey Ed25519Public `json:"sender_identity_key"`
	EphemeralKey      X25519Public  `json:"ephemeral_key"`
	OneTimeKey        *X25519Public `json:"one_time_key,omitempty"`
	Ciphertext        []byte        `json:"ciphertext"`
}
