// Package cli implements the triage command-line interface: the cycle
// runner, the workflow status view, and the reviewer decision commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Automated triage for incoming support email",
	Long: `triage fetches unseen support email, classifies each message against a
knowledge base of reference categories, drafts a localized reply using an
external reasoning engine, and surfaces the batch for human approval.

The workflow is durable: every stage transition is persisted, so a crashed
or restarted process resumes exactly where the records left off.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("triage %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
