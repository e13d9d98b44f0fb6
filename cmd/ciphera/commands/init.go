package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"brongnal/internal/clientstore"
	"brongnal/internal/crypto"
	"brongnal/internal/store"
)

// initCmd creates a new local identity: a fresh Ed25519 signing key (the
// published identity key), its derived X25519 static secret, and a signed
// prekey, then persists all of it encrypted on disk under --passphrase.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <identity>",
		Short: "Create a new local identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]

			id, err := crypto.NewIdentity()
			if err != nil {
				return fmt.Errorf("generating identity: %w", err)
			}
			st, err := clientstore.New(id)
			if err != nil {
				return fmt.Errorf("creating client store: %w", err)
			}
			if err := store.Save(appCtx.HomeDir, passphrase, identity, st); err != nil {
				return fmt.Errorf("saving identity: %w", err)
			}

			fmt.Printf("Identity %q created.\n", identity)
			fmt.Printf("Fingerprint: %s\n", crypto.Fingerprint(id.EdPub[:]))
			return nil
		},
	}
}
