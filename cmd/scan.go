package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// scanCmd reports orphaned blobs and duplicate candidates.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report orphaned blobs and duplicate candidates",
	Long: `Cross-references the blob store against the entity graph and prints a
JSON report of blobs no entity accounts for, plus groups of same-size
blobs with a recommended survivor each. Nothing is deleted; feed orphans
to the mark endpoint or command instead.`,
	RunE: runScan,
}

func init() {
	RootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	report, err := rt.blobService().Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
