package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"brongnal/internal/domain"
	"brongnal/internal/store"
	"brongnal/internal/x3dh"
)

// sendCmd runs the X3DH sender half against peer's current prekey bundle
// and posts the resulting InitialMessage to the relay.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, plaintext := args[0], args[1]

			ident, err := store.Load(appCtx.HomeDir, passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}

			bundle, err := appCtx.Relay.RequestPreKeys(cmd.Context(), peer)
			if err != nil {
				return fmt.Errorf("fetching prekey bundle for %q: %w", peer, err)
			}

			result, err := x3dh.Send(ident.Store.IdentitySigningKey(), bundle, []byte(plaintext))
			if err != nil {
				return fmt.Errorf("running X3DH against %q: %w", peer, err)
			}
			ident.Store.SetSessionKey(peer, result.SessionKey)

			err = appCtx.Relay.SendMessage(cmd.Context(), domain.SendMessageRequest{
				Recipient: peer,
				Message:   result.Message,
			})
			if err != nil {
				return fmt.Errorf("sending message to %q: %w", peer, err)
			}

			if err := store.Save(appCtx.HomeDir, passphrase, ident.Username, ident.Store); err != nil {
				return fmt.Errorf("saving identity: %w", err)
			}

			fmt.Println("Message sent.")
			return nil
		},
	}
}
