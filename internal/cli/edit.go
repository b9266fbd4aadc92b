package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <uid> <body>",
	Short: "Replace a drafted reply body before approving it",
	Long: `Replace the drafted reply body for one draft. The draft's action becomes
"reply" even if it was drafted as ignore, so an edited draft is always sent on
approval. The remaining words of the command line form the new body.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		uid, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil || uid == 0 {
			return fmt.Errorf("invalid uid %q", args[0])
		}

		body := strings.Join(args[1:], " ")
		if err := Orchestrator.Edit(uint32(uid), body); err != nil {
			return err
		}

		fmt.Printf("Updated draft %d.\n", uid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}
