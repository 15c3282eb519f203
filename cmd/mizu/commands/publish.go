package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// publishCmd signs and publishes the local identity's prekey bundle to
// the chain's postal box, so peers can look it up by address.
func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish your prekey bundle to the postal box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appCtx.Identity.Load(passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}
			if err := appCtx.Contacts.Publish(cmd.Context(), id); err != nil {
				return fmt.Errorf("publishing bundle: %w", err)
			}
			fmt.Println("Published prekey bundle")
			return nil
		},
	}
}
