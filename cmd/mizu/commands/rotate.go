package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rotateCmd rolls the local identity's signed prekey, keeping the
// previous one in a grace window so in-flight handshakes from peers
// who haven't seen the new bundle yet still complete. The caller
// should re-run publish afterwards so peers pick up the new bundle.
func rotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Rotate your signed prekey",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appCtx.Identity.RotateSignedPrekey(passphrase)
			if err != nil {
				return fmt.Errorf("rotating signed prekey: %w", err)
			}
			fmt.Printf("Rotated signed prekey (epoch %d). Run publish to announce it.\n", id.PrekeyEpoch)
			return nil
		},
	}
}
