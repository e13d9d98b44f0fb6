package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"brongnal/internal/crypto"
	"brongnal/internal/store"
)

// fingerprintCmd prints a short fingerprint of the local identity key, for
// out-of-band verification with a peer.
func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print your identity key fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ident, err := store.Load(appCtx.HomeDir, passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}

			id := ident.Store.IdentitySigningKey()
			fmt.Printf("%s  %s\n", ident.Username, crypto.Fingerprint(id.EdPub[:]))
			return nil
		},
	}
}
