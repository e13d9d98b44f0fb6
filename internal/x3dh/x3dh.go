package x3dh

import (
	"encoding/hex"
	"fmt"

	"brongnal/internal/bundle"
	"brongnal/internal/crypto"
	"brongnal/internal/domain"
)

// SendResult is the outcome of the sender half: the message to transmit and
// the session key recorded locally under the recipient's identity.
type SendResult struct {
	Message    domain.InitialMessage
	SessionKey domain.SessionKey
}

// Send runs the X3DH sender half. senderIdentity is the sender's long-term
// key pair; recipientBundle is what the directory returned for the
// recipient (possibly with no one-time key). A fresh ephemeral X25519
// secret is generated internally and never returned or persisted.
//
// Procedure, normative order: verify SPK signature, generate EK_A, compute
// DH1=DH(IK_A,SPK_B), DH2=DH(EK_A,IK_B), DH3=DH(EK_A,SPK_B),
// DH4=DH(EK_A,OPK_B) if present, derive SK=KDF(DH1‖DH2‖DH3‖[DH4]),
// AD=IK_A‖IK_B, seal the plaintext under SK/AD.
func Send(senderIdentity *crypto.Identity, recipientBundle domain.PreKeyBundle, plaintext []byte) (SendResult, error) {
	var result SendResult

	if err := bundle.VerifySignedPreKey(recipientBundle.IdentityKey, recipientBundle.SPK); err != nil {
		return result, fmt.Errorf("x3dh: send: %w", err)
	}

	recipientXIK, err := crypto.CrossCurvePublic(recipientBundle.IdentityKey)
	if err != nil {
		return result, fmt.Errorf("x3dh: send: recipient cross-curve: %w", err)
	}

	ekPriv, ekPub, err := crypto.GenerateX25519()
	if err != nil {
		return result, fmt.Errorf("x3dh: send: generate ephemeral key: %w", err)
	}

	dh1, err := crypto.DH(senderIdentity.XPriv, recipientBundle.SPK.PreKey)
	if err != nil {
		return result, fmt.Errorf("x3dh: send: DH1: %w", err)
	}
	dh2, err := crypto.DH(ekPriv, recipientXIK)
	if err != nil {
		return result, fmt.Errorf("x3dh: send: DH2: %w", err)
	}
	dh3, err := crypto.DH(ekPriv, recipientBundle.SPK.PreKey)
	if err != nil {
		return result, fmt.Errorf("x3dh: send: DH3: %w", err)
	}

	dhConcat := make([]byte, 0, 32*4)
	dhConcat = append(dhConcat, dh1[:]...)
	dhConcat = append(dhConcat, dh2[:]...)
	dhConcat = append(dhConcat, dh3[:]...)

	if recipientBundle.OneTimeKey != nil {
		dh4, err := crypto.DH(ekPriv, *recipientBundle.OneTimeKey)
		if err != nil {
			return result, fmt.Errorf("x3dh: send: DH4: %w", err)
		}
		dhConcat = append(dhConcat, dh4[:]...)
		crypto.Wipe(dh4[:])
	}

	sk := crypto.DeriveRootKey(dhConcat)
	crypto.WipeAll(dhConcat, dh1[:], dh2[:], dh3[:], ekPriv[:])

	ad := append(append([]byte{}, senderIdentity.EdPub[:]...), recipientBundle.IdentityKey[:]...)
	ciphertext, err := crypto.Seal(sk, ad, plaintext)
	if err != nil {
		return result, fmt.Errorf("x3dh: send: seal: %w", err)
	}

	result.Message = domain.InitialMessage{
		SenderIdentityKey: senderIdentity.EdPub,
		EphemeralKey:      ekPub,
		OneTimeKey:        recipientBundle.OneTimeKey,
		Ciphertext:        ciphertext,
	}
	result.SessionKey = sk
	return result, nil
}

// OneTimeKeyConsumer is the forward-secrecy-wipe capability the receiver
// half needs from the client key store: atomically remove and return the
// secret for a one-time public key, failing with domain.ErrUnknownOneTimeKey
// if it was never present or already consumed.
type OneTimeKeyConsumer interface {
	ConsumeOneTimeKey(pub domain.X25519Public) (domain.X25519Private, error)
}

// SessionKeyRecorder is the session_map bookkeeping the receiver half needs
// from the client key store: record SK for the peer as soon as it is
// derived, and delete it again if the bound AEAD open fails. Both methods
// are satisfied by *clientstore.Store.
type SessionKeyRecorder interface {
	SetSessionKey(peer string, sk domain.SessionKey)
	DestroySessionKey(peer string)
}

// senderKey is the session_map key a receiver records SK under: the sender
// has no string Identity available at this layer (spec.md's InitialMessage
// carries only the Ed25519 identity key, not a routed username), so the
// hex-encoded identity key stands in for it.
func senderKey(senderIdentityKey domain.Ed25519Public) string {
	return hex.EncodeToString(senderIdentityKey[:])
}

// ReceiveResult is the outcome of the receiver half.
type ReceiveResult struct {
	Plaintext  []byte
	SessionKey domain.SessionKey
}

// Receive runs the X3DH receiver half. receiverIdentity and spkSecret are
// the receiver's long-term identity key and the private half of the SPK
// named in msg's implicit context (the SPK the sender encrypted against).
// otks resolves and wipes the one-time key msg names, if any; sessions
// records and, on failure, destroys the session key for the sender.
//
// Procedure, normative order: if msg names a one-time key, consume it
// first (FS wipe) — failure here aborts before any DH is computed. Then
// compute the mirrored DH1..DH3[,DH4], derive SK, bind AD, record SK in
// sessions, and AEAD-open. A decrypt failure is reported as
// domain.ErrDecryptFailed and deletes the just-recorded session key (the
// one-time key wipe that already happened is not rolled back).
func Receive(receiverIdentity *crypto.Identity, spkSecret domain.X25519Private, otks OneTimeKeyConsumer, sessions SessionKeyRecorder, senderIdentityKey domain.Ed25519Public, msg domain.InitialMessage) (ReceiveResult, error) {
	var result ReceiveResult

	var opkSecret *domain.X25519Private
	if msg.OneTimeKey != nil {
		secret, err := otks.ConsumeOneTimeKey(*msg.OneTimeKey)
		if err != nil {
			return result, fmt.Errorf("x3dh: receive: %w", domain.ErrUnknownOneTimeKey)
		}
		opkSecret = &secret
	}

	senderXIK, err := crypto.CrossCurvePublic(senderIdentityKey)
	if err != nil {
		return result, fmt.Errorf("x3dh: receive: sender cross-curve: %w", err)
	}

	dh1, err := crypto.DH(spkSecret, senderXIK)
	if err != nil {
		return result, fmt.Errorf("x3dh: receive: DH1: %w", err)
	}
	dh2, err := crypto.DH(receiverIdentity.XPriv, msg.EphemeralKey)
	if err != nil {
		return result, fmt.Errorf("x3dh: receive: DH2: %w", err)
	}
	dh3, err := crypto.DH(spkSecret, msg.EphemeralKey)
	if err != nil {
		return result, fmt.Errorf("x3dh: receive: DH3: %w", err)
	}

	dhConcat := make([]byte, 0, 32*4)
	dhConcat = append(dhConcat, dh1[:]...)
	dhConcat = append(dhConcat, dh2[:]...)
	dhConcat = append(dhConcat, dh3[:]...)

	if opkSecret != nil {
		dh4, err := crypto.DH(*opkSecret, msg.EphemeralKey)
		if err != nil {
			return result, fmt.Errorf("x3dh: receive: DH4: %w", err)
		}
		dhConcat = append(dhConcat, dh4[:]...)
		crypto.Wipe(dh4[:])
		crypto.Wipe(opkSecret[:])
	}

	sk := crypto.DeriveRootKey(dhConcat)
	crypto.WipeAll(dhConcat, dh1[:], dh2[:], dh3[:])

	peer := senderKey(senderIdentityKey)
	sessions.SetSessionKey(peer, sk)

	ad := append(append([]byte{}, senderIdentityKey[:]...), receiverIdentity.EdPub[:]...)
	pt, err := crypto.Open(sk, ad, msg.Ciphertext)
	if err != nil {
		sessions.DestroySessionKey(peer)
		return result, fmt.Errorf("x3dh: receive: %w", domain.ErrDecryptFailed)
	}

	result.Plaintext = pt
	result.SessionKey = sk
	return result, nil
}
