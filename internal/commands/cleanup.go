package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"touchmon/internal/metrics"
	"touchmon/internal/process"
	"touchmon/internal/ui"
)

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove a stale lock and live snapshot left by a crashed sampler",
		Long: `Remove the PID lock file and the live snapshot file when no sampler owns them.
Nothing is removed while a sampler is running.

Examples:
  touchmon cleanup`,
		Run: func(cmd *cobra.Command, args []string) {
			ui.PrintSection("Cleaning Up")

			if err := process.CleanupStale(); err != nil {
				ui.PrintStatus("warning", fmt.Sprintf("Skipped: %v", err))
				ui.PrintSectionEnd()
				return
			}
			ui.PrintStatus("success", "Lock file is clear: "+process.PIDFilePath())

			if err := metrics.ClearSnapshot(); err != nil {
				ui.PrintStatus("error", fmt.Sprintf("Failed to remove %s: %v", metrics.SnapshotFilePath(), err))
			} else {
				ui.PrintStatus("success", "Live snapshot removed")
			}
			ui.PrintSectionEnd()
		},
	}
}
