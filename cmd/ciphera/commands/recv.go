package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"brongnal/internal/store"
	"brongnal/internal/x3dh"
)

// recvCmd drains the relay's queue for the local identity and runs the
// X3DH receiver half against each queued InitialMessage.
func recvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ident, err := store.Load(appCtx.HomeDir, passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}

			msgs, err := appCtx.Relay.RetrieveMessages(cmd.Context(), ident.Username)
			if err != nil {
				return fmt.Errorf("fetching messages: %w", err)
			}

			for _, msg := range msgs {
				result, err := x3dh.Receive(
					ident.Store.IdentitySigningKey(),
					ident.Store.PreKeySecret(),
					ident.Store,
					ident.Store,
					msg.SenderIdentityKey,
					msg,
				)
				if err != nil {
					fmt.Printf("[dropped] undecryptable message: %v\n", err)
					continue
				}
				fmt.Printf("[%x] %s\n", msg.SenderIdentityKey[:8], string(result.Plaintext))
			}

			if err := store.Save(appCtx.HomeDir, passphrase, ident.Username, ident.Store); err != nil {
				return fmt.Errorf("saving identity: %w", err)
			}
			return nil
		},
	}
}
