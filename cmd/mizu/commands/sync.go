package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mizu/internal/domain"
)

// syncCmd polls every known contact's postal box once, decrypting and
// printing any new messages, then exits. Run it on a cron or loop for
// continuous delivery; the sync driver itself has no daemon mode here.
func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Poll contacts and decrypt anything new",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := appCtx.Identity.Load(passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}

			driver := appCtx.NewSyncDriver(id)
			driver.OnMessage = func(c domain.Contact, plaintext []byte) {
				fmt.Printf("[%s] %s\n", c.Address, string(plaintext))
			}

			if err := driver.RunOnce(cmd.Context()); err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			return nil
		},
	}
}
