package service

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"brongnal/internal/clientstore"
	"brongnal/internal/crypto"
	"brongnal/internal/directory"
	"brongnal/internal/domain"
	"brongnal/internal/x3dh"
)

// testUser sets up a registered directory entry backed by a real
// clientstore.Store, so a test can run the full X3DH sender/receiver
// halves against it exactly as cmd/ciphera would.
type testUser struct {
	name  string
	id    *crypto.Identity
	store *clientstore.Store
}

func newTestUser(t *testing.T, svc *Service, name string, otkBatch int) *testUser {
	t.Helper()
	id, err := crypto.NewIdentity()
	require.NoError(t, err)
	st, err := clientstore.New(id)
	require.NoError(t, err)

	err = svc.Register(domain.RegisterRequest{
		Identity:     name,
		IdentityKey:  id.EdPub,
		SignedPreKey: st.SignedPrekey(),
	})
	require.NoError(t, err)

	if otkBatch > 0 {
		otks, err := st.ReplenishOneTimeKeys(otkBatch)
		require.NoError(t, err)
		err = svc.PublishOneTimeKeys(domain.PublishOneTimeKeysRequest{Identity: name, OneTimeKeys: otks})
		require.NoError(t, err)
	}

	return &testUser{name: name, id: id, store: st}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir, err := directory.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	return New(dir)
}

// TestTwoPartyHappyPath is scenario A.
func TestTwoPartyHappyPath(t *testing.T) {
	svc := newTestService(t)
	bob := newTestUser(t, svc, "Bob", 100)
	alice := newTestUser(t, svc, "Alice", 0)

	bundleForAlice, err := svc.RequestPreKeys("Bob")
	require.NoError(t, err)
	require.NotNil(t, bundleForAlice.OneTimeKey)

	sendResult, err := x3dh.Send(alice.id, bundleForAlice, []byte("Hello"))
	require.NoError(t, err)

	err = svc.SendMessage(domain.SendMessageRequest{Recipient: "Bob", Message: sendResult.Message})
	require.NoError(t, err)

	msgs, err := svc.RetrieveMessages("Bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	recvResult, err := x3dh.Receive(bob.id, bob.store.PreKeySecret(), bob.store, bob.store, alice.id.EdPub, msgs[0])
	require.NoError(t, err)
	require.Equal(t, "Hello", string(recvResult.Plaintext))
	require.Equal(t, sendResult.SessionKey, recvResult.SessionKey)
	require.Equal(t, 99, bob.store.OneTimeKeyCount())
}

// TestNoOneTimeKeyAvailable is scenario B.
func TestNoOneTimeKeyAvailable(t *testing.T) {
	svc := newTestService(t)
	bob := newTestUser(t, svc, "Bob", 0)
	alice := newTestUser(t, svc, "Alice", 0)

	bundleForAlice, err := svc.RequestPreKeys("Bob")
	require.NoError(t, err)
	require.Nil(t, bundleForAlice.OneTimeKey)

	sendResult, err := x3dh.Send(alice.id, bundleForAlice, []byte("hi"))
	require.NoError(t, err)
	require.NoError(t, svc.SendMessage(domain.SendMessageRequest{Recipient: "Bob", Message: sendResult.Message}))

	msgs, err := svc.RetrieveMessages("Bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	recvResult, err := x3dh.Receive(bob.id, bob.store.PreKeySecret(), bob.store, bob.store, alice.id.EdPub, msgs[0])
	require.NoError(t, err)
	require.Equal(t, "hi", string(recvResult.Plaintext))
	require.Equal(t, 0, bob.store.OneTimeKeyCount())
}

// TestTamperedCiphertext is scenario C.
func TestTamperedCiphertext(t *testing.T) {
	svc := newTestService(t)
	bob := newTestUser(t, svc, "Bob", 1)
	alice := newTestUser(t, svc, "Alice", 0)

	bundleForAlice, err := svc.RequestPreKeys("Bob")
	require.NoError(t, err)

	sendResult, err := x3dh.Send(alice.id, bundleForAlice, []byte("Hello"))
	require.NoError(t, err)

	tampered := sendResult.Message
	tampered.Ciphertext = append([]byte{}, tampered.Ciphertext...)
	tampered.Ciphertext[len(tampered.Ciphertext)-1] ^= 0xFF
	require.NoError(t, svc.SendMessage(domain.SendMessageRequest{Recipient: "Bob", Message: tampered}))

	msgs, err := svc.RetrieveMessages("Bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	_, err = x3dh.Receive(bob.id, bob.store.PreKeySecret(), bob.store, bob.store, alice.id.EdPub, msgs[0])
	require.ErrorIs(t, err, domain.ErrDecryptFailed)

	_, ok := bob.store.EncryptionKeyFor(hex.EncodeToString(alice.id.EdPub[:]))
	require.False(t, ok)
	require.Equal(t, 0, bob.store.OneTimeKeyCount())
}

// TestBadSPKSignature is scenario D.
func TestBadSPKSignature(t *testing.T) {
	svc := newTestService(t)
	bob := newTestUser(t, svc, "Bob", 0)
	alice := newTestUser(t, svc, "Alice", 0)

	bundleForAlice, err := svc.RequestPreKeys("Bob")
	require.NoError(t, err)
	bundleForAlice.SPK.Signature = append([]byte{}, bundleForAlice.SPK.Signature...)
	bundleForAlice.SPK.Signature[0] ^= 0xFF

	_, err = x3dh.Send(alice.id, bundleForAlice, []byte("hi"))
	require.ErrorIs(t, err, domain.ErrBundleVerifyFailed)

	msgs, err := svc.RetrieveMessages("Bob")
	require.NoError(t, err)
	require.Empty(t, msgs)
}

// TestUnknownUser is scenario E.
func TestUnknownUser(t *testing.T) {
	svc := newTestService(t)
	err := svc.SendMessage(domain.SendMessageRequest{
		Recipient: "Carol",
		Message:   domain.InitialMessage{Ciphertext: []byte("ct")},
	})
	require.ErrorIs(t, err, domain.ErrUnknownUser)
}

// TestOneTimeKeyDoubleConsume is scenario F.
func TestOneTimeKeyDoubleConsume(t *testing.T) {
	svc := newTestService(t)
	bob := newTestUser(t, svc, "Bob", 0)

	otks, err := bob.store.ReplenishOneTimeKeys(1)
	require.NoError(t, err)
	require.NoError(t, svc.PublishOneTimeKeys(domain.PublishOneTimeKeysRequest{Identity: "Bob", OneTimeKeys: otks}))
	pub := otks.PreKeys[0]

	_, err = bob.store.ConsumeOneTimeKey(pub)
	require.NoError(t, err)
	_, err = bob.store.ConsumeOneTimeKey(pub)
	require.ErrorIs(t, err, domain.ErrUnknownOneTimeKey)
}
