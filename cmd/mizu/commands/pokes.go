package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pokesCmd drains and prints the addresses of everyone who has poked
// the local identity since the last drain.
func pokesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pokes",
		Short: "Drain pokes addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appCtx.Identity.Load(passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}

			senders, err := appCtx.Contacts.DrainPokes(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("draining pokes: %w", err)
			}
			if len(senders) == 0 {
				fmt.Println("No pokes pending")
				return nil
			}
			for _, s := range senders {
				fmt.Println(s)
			}
			return nil
		},
	}
}
