package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"touchmon/internal/process"
	"touchmon/internal/service"
	"touchmon/internal/ui"
)

// NewRestartCmd creates the restart command
func NewRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Stop and restart the background sampler",
		Long: `Stop the running daemon and start a new one.
When touchmon is installed as a service the service manager restarts it.
Settings changes do not need a restart: 'touchmon set' applies them to the
running daemon.

Examples:
  touchmon restart`,
		Run: func(cmd *cobra.Command, args []string) {
			settings := loadSettings()
			ui.PrintHeader()
			ui.PrintSection("Restarting Sampler")

			if svc, err := service.New(); err == nil && svc.IsRunning() {
				if _, err := svc.Stop(); err != nil {
					ui.PrintError(fmt.Sprintf("Failed to stop service: %v", err), settings.LogFile)
					ui.PrintSectionEnd()
					return
				}
				ui.PrintStatus("info", "Service stopped")

				status, err := svc.Start()
				if err != nil {
					ui.PrintError(fmt.Sprintf("Failed to start service: %v", err), settings.LogFile)
					ui.PrintSectionEnd()
					return
				}
				ui.PrintStatus("success", status)
				ui.PrintSectionEnd()
				return
			}

			pid, err := process.RestartProcess()
			if err != nil {
				ui.PrintError(fmt.Sprintf("Failed to restart: %v", err), settings.LogFile)
				ui.PrintSectionEnd()
				return
			}
			ui.PrintStatus("success", fmt.Sprintf("Sampler restarted (PID %d)", pid))
			ui.PrintSectionEnd()
		},
	}
}
