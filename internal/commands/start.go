package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"touchmon/internal/process"
	"touchmon/internal/ui"
)

// NewStartCmd creates the start command
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the background sampler",
		Long: `Start the touchmon daemon in the background.
The daemon samples CPU, RAM, temperature and network throughput into the
metrics store and prunes samples older than retention_days.

To run under systemd/launchd instead:
  touchmon service install && touchmon service start

Examples:
  touchmon start         # Start the daemon`,
		Run: func(cmd *cobra.Command, args []string) {
			settings := loadSettings()
			ui.PrintHeader()
			ui.PrintSection("Starting Sampler")

			pid, err := process.StartProcess()
			switch {
			case errors.Is(err, process.ErrAlreadyRunning):
				ui.PrintStatus("warning", fmt.Sprintf("Sampler is already running (PID %d)", pid))
			case err != nil:
				ui.PrintError(fmt.Sprintf("Failed to start: %v", err), settings.LogFile)
			default:
				ui.PrintStatus("success", fmt.Sprintf("Sampler started (PID %d)", pid))
			}
			ui.PrintSectionEnd()
		},
	}
}

// NewStopCmd creates the stop command
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background sampler",
		Run: func(cmd *cobra.Command, args []string) {
			settings := loadSettings()
			ui.PrintHeader()
			ui.PrintSection("Stopping Sampler")

			err := process.StopProcess()
			switch {
			case errors.Is(err, process.ErrNotRunning):
				ui.PrintStatus("info", "Sampler is not running")
			case err != nil:
				ui.PrintError(fmt.Sprintf("Failed to stop: %v", err), settings.LogFile)
			default:
				ui.PrintStatus("success", "Sampler stopped")
			}
			ui.PrintSectionEnd()
		},
	}
}
