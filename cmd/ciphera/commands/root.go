package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"brongnal/internal/app"
)

var (
	// These flags are shared across all commands.
	homeDir    string
	relayURL   string
	passphrase string

	// appCtx holds the wired dependencies after PersistentPreRunE.
	appCtx *app.Wire
)

// Execute initialises the application context and runs the root cobra command.
func Execute() error {
	root := &cobra.Command{
		Use:   "ciphera",
		Short: "Asynchronous X3DH messaging CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			appCtx, err = app.NewWire(app.Config{HomeDir: homeDir, RelayURL: relayURL})
			return err
		},
	}

	root.PersistentFlags().StringVar(&homeDir, "home", "", "config directory (default: $HOME/.ciphera)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting your local identity")
	root.PersistentFlags().StringVar(&relayURL, "relay", "http://127.0.0.1:8080", "relay base URL")
	_ = root.MarkPersistentFlagRequired("passphrase")

	root.AddCommand(
		initCmd(),
		registerCmd(),
		sendCmd(),
		recvCmd(),
		fingerprintCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root.SetContext(ctx)

	return root.Execute()
}
