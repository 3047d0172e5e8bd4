package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepGraceDays int

// sweepCmd deletes marked blobs whose grace period has expired.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete marked blobs whose grace period has expired",
	Long: `Walks the bucket and permanently removes every blob carrying the
soft-delete marker once its grace period has expired. Unmarked blobs and
markers younger than the grace period are untouched.

Examples:
  # Sweep with the configured grace period
  mod-registry sweep

  # Sweep with an explicit grace period
  mod-registry sweep --grace-days 10`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepGraceDays, "grace-days", 0, "Grace period in days (0 uses the configured default)")
	RootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	report, err := rt.blobService().SweepAndDelete(ctx, sweepGraceDays)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	rt.logger.Info("Sweep complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("marked", report.Marked),
		zap.Int("deleted", report.Deleted),
		zap.Int("errored", report.Errored))
	return nil
}
