package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/mail-triage/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Expose the triage workflow as Model Context Protocol tools over stdio, so
an MCP client can inspect the current batch and approve or reject drafts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		return mcp.NewServer(Orchestrator, Store, References, appVersion).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
