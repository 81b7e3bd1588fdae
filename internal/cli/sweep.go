package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-support/internal/app"
	"github.com/spec-kit/campus-support/internal/config"
	"github.com/spec-kit/campus-support/internal/observability"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one escalation sweep and print its report",
	Long: `Scans active tickets for breached acknowledgement or resolution
deadlines and escalates them. Uses the same Redis lease as the HTTP cron
endpoint, so a concurrent run reports itself as skipped.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	report, err := container.Sweep.RunEscalationSweep(ctx)
	if err != nil {
		logger.Error("sweep failed", zap.Error(err))
		return err
	}
	return writeJSON(cmd.OutOrStdout(), report)
}
