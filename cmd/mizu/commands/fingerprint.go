package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// fingerprintCmd prints the fingerprint of the stored identity's
// X25519 public key, for out-of-band verification with a peer.
func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := appCtx.Identity.Fingerprint(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
}
