package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/mail-triage/pkg/models"
)

// Style definitions for the status view.
var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	statusIdleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusPendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusDraftedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusAwaitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the workflow status and the current batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("workflow store not initialized")
		}

		status := Store.Status()
		fmt.Println(statusTitleStyle.Render("mail triage") + "  " + renderStatus(status))
		fmt.Println()

		switch status {
		case models.StatusPending:
			emails := Store.LoadPending()
			fmt.Printf("Pending batch: %d email(s) awaiting classification\n", len(emails))
			for _, e := range emails {
				fmt.Printf("  %-6d %-30s %s\n", e.UID, clip(e.From, 30), clip(e.Subject, 50))
			}
		case models.StatusDrafted, models.StatusAwaiting:
			drafts := Store.LoadDrafts()
			replies := 0
			for _, d := range drafts {
				if d.Action == models.ActionReply {
					replies++
				}
			}
			fmt.Printf("Draft batch: %d draft(s), %d reply(ies)\n", len(drafts), replies)
			fmt.Printf("  %-6s %-10s %-12s %-5s %s\n", "UID", "ACTION", "CATEGORY", "CONF", "SUBJECT")
			for _, d := range drafts {
				conf := int(math.Round(d.Confidence * 100))
				fmt.Printf("  %-6d %-10s %-12s %3d%%  %s\n",
					d.UID, d.Action, clip(d.Category, 12), conf, clip(d.Subject, 45))
			}
			if status == models.StatusAwaiting {
				fmt.Println()
				fmt.Println(dimStyle.Render("Digest posted; decide with: triage approve [uid] [--ref] | triage reject [uid] | triage edit <uid> <text>"))
			}
		case models.StatusIdle:
			fmt.Println("No batch in flight.")
		}

		fmt.Println()
		fmt.Printf("References: %d entries\n", len(References.Load()))
		fmt.Printf("Last fetched UID: %d\n", Store.LastUID())
		return nil
	},
}

func renderStatus(status models.Status) string {
	label := strings.ToUpper(string(status))
	switch status {
	case models.StatusPending:
		return statusPendingStyle.Render(label)
	case models.StatusDrafted:
		return statusDraftedStyle.Render(label)
	case models.StatusAwaiting:
		return statusAwaitingStyle.Render(label)
	default:
		return statusIdleStyle.Render(label)
	}
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
