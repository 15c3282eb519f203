package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// addCmd fetches a peer's published prekey bundle, verifies its
// address binding and signed-prekey signature, and saves it as a
// contact for future sends.
func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <peer-address>",
		Short: "Fetch and verify a peer's prekey bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerAddress := args[0]

			c, err := appCtx.Contacts.Add(cmd.Context(), address, peerAddress)
			if err != nil {
				return fmt.Errorf("adding %q: %w", peerAddress, err)
			}

			fmt.Printf("Added %s (%s)\n", c.Address, c.Name)
			return nil
		},
	}
}
