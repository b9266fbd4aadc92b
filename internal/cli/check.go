package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	checkOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	checkFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	checkSkipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify connectivity to the mailbox, SMTP relay, and reasoning engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0

		if Fetcher == nil {
			printCheck("IMAP", checkSkipStyle.Render("SKIP"), "mailbox not configured")
		} else if total, err := Fetcher.TestConnection(); err != nil {
			printCheck("IMAP", checkFailStyle.Render("FAIL"), err.Error())
			failed++
		} else {
			printCheck("IMAP", checkOKStyle.Render("OK"), fmt.Sprintf("%d message(s) in INBOX", total))
		}

		if Sender == nil {
			printCheck("SMTP", checkSkipStyle.Render("SKIP"), "relay not configured")
		} else if err := Sender.Verify(); err != nil {
			printCheck("SMTP", checkFailStyle.Render("FAIL"), err.Error())
			failed++
		} else {
			printCheck("SMTP", checkOKStyle.Render("OK"), fmt.Sprintf("reachable at %s:%d", Cfg.SMTP.Host, Cfg.SMTP.Port))
		}

		if EngineErr != nil {
			printCheck("Engine", checkFailStyle.Render("FAIL"), EngineErr.Error())
			failed++
		} else {
			endpoint := Cfg.Gateway.URL
			if endpoint == "" {
				endpoint = "loopback gateway on port " + Cfg.Gateway.Port
			}
			printCheck("Engine", checkOKStyle.Render("OK"), endpoint)
		}

		if Cfg.WebhookURL == "" {
			printCheck("Notify", checkSkipStyle.Render("SKIP"), "no webhook configured; digests go to the outbox directory")
		} else {
			printCheck("Notify", checkOKStyle.Render("OK"), "webhook configured")
		}

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func printCheck(name, verdict, detail string) {
	fmt.Printf("%-8s %s  %s\n", name, verdict, detail)
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
