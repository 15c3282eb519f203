package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var name string

// initCmd creates a new identity bound to --address, generating fresh
// X25519 and Ed25519 keypairs and a signed prekey, and stores them
// encrypted at rest under --passphrase. It refuses to run if an
// identity already exists; use rotate to roll the signed prekey.
func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create your local identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, fp, err := appCtx.Identity.Generate(passphrase, address, name)
			if err != nil {
				return fmt.Errorf("generating identity: %w", err)
			}

			fmt.Println("Identity created.")
			fmt.Printf("Address: %s\n", id.Address)
			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name for your prekey bundle")
	return cmd
}
