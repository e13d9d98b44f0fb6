package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"brongnal/internal/domain"
	"brongnal/internal/store"
)

// defaultOneTimeKeyBatch is the typical one-time prekey batch size.
const defaultOneTimeKeyBatch = 100

// registerCmd publishes the local identity's (identity key, signed
// prekey) to the relay, then replenishes and publishes a fresh batch of
// one-time prekeys.
func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Publish your identity key, signed prekey, and one-time prekeys to the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ident, err := store.Load(appCtx.HomeDir, passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}

			id := ident.Store.IdentitySigningKey()
			err = appCtx.Relay.Register(cmd.Context(), domain.RegisterRequest{
				Identity:     ident.Username,
				IdentityKey:  id.EdPub,
				SignedPreKey: ident.Store.SignedPrekey(),
			})
			if err != nil {
				return fmt.Errorf("registering with relay: %w", err)
			}

			otks, err := ident.Store.ReplenishOneTimeKeys(defaultOneTimeKeyBatch)
			if err != nil {
				return fmt.Errorf("generating one-time keys: %w", err)
			}
			err = appCtx.Relay.PublishOneTimeKeys(cmd.Context(), domain.PublishOneTimeKeysRequest{
				Identity:    ident.Username,
				OneTimeKeys: otks,
			})
			if err != nil {
				return fmt.Errorf("publishing one-time keys: %w", err)
			}

			if err := store.Save(appCtx.HomeDir, passphrase, ident.Username, ident.Store); err != nil {
				return fmt.Errorf("saving identity: %w", err)
			}

			fmt.Printf("Registered %q with %d one-time keys.\n", ident.Username, len(otks.PreKeys))
			return nil
		},
	}
}
