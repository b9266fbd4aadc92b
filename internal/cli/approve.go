package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var approveRef bool

var approveCmd = &cobra.Command{
	Use:   "approve [uid]",
	Short: "Approve drafts and send the replies",
	Long: `Approve the draft with the given UID, or every remaining draft when no UID
is given. Approving a reply draft sends the drafted reply over SMTP; ignore
drafts are simply removed. With --ref, each approved draft is also promoted
into the reference knowledge base so future batches can reuse its answer.

When the last draft is decided the workflow returns to idle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		uid, err := parseUIDArg(args)
		if err != nil {
			return err
		}
		if approveRef && EngineErr != nil {
			return fmt.Errorf("cannot promote to references: %w", EngineErr)
		}

		sent, err := Orchestrator.Approve(cmd.Context(), uid, approveRef)
		if err != nil {
			return err
		}

		fmt.Printf("Approved; %d reply(ies) sent. Workflow status: %s\n", sent, Store.Status())
		return nil
	},
}

// parseUIDArg reads an optional UID argument; 0 means "all drafts".
func parseUIDArg(args []string) (uint32, error) {
	if len(args) == 0 {
		return 0, nil
	}
	uid, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid uid %q", args[0])
	}
	return uint32(uid), nil
}

func init() {
	approveCmd.Flags().BoolVar(&approveRef, "ref", false, "Also promote approved drafts into the reference knowledge base")
	rootCmd.AddCommand(approveCmd)
}
