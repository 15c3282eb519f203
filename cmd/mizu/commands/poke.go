package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pokeCmd seals a discovery hint naming the local address and leaves
// it in a contact's poke queue, for cases where no session exists yet
// and the peer should notice and republish a fresh bundle.
func pokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poke <peer-address>",
		Short: "Leave a discovery poke for a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerAddress := args[0]

			c, ok, err := appCtx.Contacts.Get(address, peerAddress)
			if err != nil {
				return fmt.Errorf("loading contact: %w", err)
			}
			if !ok {
				return fmt.Errorf("no contact %q: run add first", peerAddress)
			}

			if err := appCtx.Contacts.Poke(cmd.Context(), c, address); err != nil {
				return fmt.Errorf("poking %q: %w", peerAddress, err)
			}

			fmt.Println("Poke sent")
			return nil
		},
	}
}
