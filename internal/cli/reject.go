package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rejectCmd = &cobra.Command{
	Use:   "reject [uid]",
	Short: "Discard drafts without sending anything",
	Long: `Discard the draft with the given UID, or every remaining draft when no UID
is given. Nothing is sent to the customer. When the last draft is decided the
workflow returns to idle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		uid, err := parseUIDArg(args)
		if err != nil {
			return err
		}

		removed, err := Orchestrator.Reject(uid)
		if err != nil {
			return err
		}

		fmt.Printf("Rejected %d draft(s). Workflow status: %s\n", removed, Store.Status())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rejectCmd)
}
