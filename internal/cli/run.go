package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runLoop     bool
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Advance the triage workflow by one stage",
	Long: `Advance the triage workflow one stage from its current durable state:

  idle     fetch new emails and record them as a pending batch
  pending  classify the batch and record the drafts
  drafted  post the digest to the notification channel
  awaiting wait for a reviewer decision (approve/reject/edit)

With --loop, keeps cycling at the given interval until interrupted; cycle
errors are logged and the loop continues, resuming from the last durably
recorded stage.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		if ConfigErr != nil {
			return ConfigErr
		}
		if EngineErr != nil {
			return fmt.Errorf("reasoning engine unavailable: %w", EngineErr)
		}

		if !runLoop {
			status, err := Orchestrator.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Workflow status: %s\n", status)
			return nil
		}

		for {
			status, err := Orchestrator.RunCycle(cmd.Context())
			if err != nil {
				Logger.Error("triage cycle failed", zap.Error(err))
			} else {
				Logger.Info("triage cycle complete", zap.String("status", string(status)))
			}

			select {
			case <-cmd.Context().Done():
				return nil
			case <-time.After(runInterval):
			}
		}
	},
}

func init() {
	runCmd.Flags().BoolVar(&runLoop, "loop", false, "Keep cycling until interrupted")
	runCmd.Flags().DurationVar(&runInterval, "interval", 5*time.Minute, "Delay between cycles with --loop")
	rootCmd.AddCommand(runCmd)
}
