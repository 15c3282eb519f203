package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// sendCmd encrypts and sends a message to an already-added contact,
// driving whatever session state (none, in-flight, or established)
// the conversation is currently in.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer-address> <message>",
		Short: "Encrypt and send a message to a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerAddress, message := args[0], args[1]

			id, err := appCtx.Identity.Load(passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}
			c, ok, err := appCtx.Contacts.Get(address, peerAddress)
			if err != nil {
				return fmt.Errorf("loading contact: %w", err)
			}
			if !ok {
				return fmt.Errorf("no contact %q: run add first", peerAddress)
			}

			if err := appCtx.Conv.Send(cmd.Context(), id, c, []byte(message)); err != nil {
				return fmt.Errorf("sending to %q: %w", peerAddress, err)
			}

			fmt.Println("Message sent")
			return nil
		},
	}
}
