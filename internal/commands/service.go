package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"touchmon/internal/process"
	"touchmon/internal/service"
	"touchmon/internal/ui"
)

// NewServiceCmd creates the service command with subcommands
func NewServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage touchmon as a system service",
		Long: `Run the sampler under systemd (Linux) or launchd (macOS).
Root installs a system service, other users a user agent.

Examples:
  touchmon service install   # Install and enable the service
  touchmon service start     # Start the service
  touchmon service status    # Check service status
  touchmon service remove    # Remove the service`,
	}

	cmd.AddCommand(newServiceActionCmd("install", "Install touchmon as a system service", "Installing Service",
		func(svc *service.Service) (string, error) {
			// a manually started daemon would hold the lock
			if process.IsRunning() {
				if err := process.StopProcess(); err != nil {
					return "", fmt.Errorf("failed to stop the running sampler: %w", err)
				}
			}
			return svc.Install()
		}, "Run 'touchmon service start' to start sampling"))

	cmd.AddCommand(newServiceActionCmd("remove", "Remove the touchmon service", "Removing Service",
		func(svc *service.Service) (string, error) {
			svc.Stop()
			return svc.Remove()
		}, ""))

	cmd.AddCommand(newServiceActionCmd("start", "Start the touchmon service", "Starting Service",
		func(svc *service.Service) (string, error) {
			status, err := svc.Start()
			if err != nil {
				return status, fmt.Errorf("%w (try 'touchmon service install' first)", err)
			}
			return status, nil
		}, ""))

	cmd.AddCommand(newServiceActionCmd("stop", "Stop the touchmon service", "Stopping Service",
		(*service.Service).Stop, ""))

	cmd.AddCommand(newServiceActionCmd("restart", "Restart the touchmon service", "Restarting Service",
		func(svc *service.Service) (string, error) {
			svc.Stop()
			return svc.Start()
		}, ""))

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Check the service status",
		Run: func(cmd *cobra.Command, args []string) {
			ui.PrintSection("Service Status")
			svc, err := service.New()
			if err != nil {
				ui.PrintStatus("error", fmt.Sprintf("Failed to create service: %v", err))
				ui.PrintSectionEnd()
				os.Exit(1)
			}

			status, err := svc.Status()
			if err != nil {
				ui.PrintStatus("warning", fmt.Sprintf("Status: %v", err))
			} else {
				ui.PrintStatus("info", status)
			}
			ui.PrintSectionEnd()
		},
	})

	return cmd
}

func newServiceActionCmd(use, short, title string, action func(*service.Service) (string, error), hint string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			settings := loadSettings()
			ui.PrintHeader()
			ui.PrintSection(title)

			svc, err := service.New()
			if err != nil {
				ui.PrintError(fmt.Sprintf("Failed to create service: %v", err), settings.LogFile)
				ui.PrintSectionEnd()
				os.Exit(1)
			}

			status, err := action(svc)
			if err != nil {
				ui.PrintError(fmt.Sprintf("Failed to %s: %v", use, err), settings.LogFile)
				ui.PrintSectionEnd()
				os.Exit(1)
			}

			ui.PrintStatus("success", status)
			if hint != "" {
				ui.PrintStatus("info", hint)
			}
			ui.PrintSectionEnd()
		},
	}
}
