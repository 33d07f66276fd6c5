package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"touchmon/internal/config"
	"touchmon/internal/process"
	"touchmon/internal/ui"
)

// NewSetCmd creates the set command
func NewSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value...",
		Short: "Change settings and apply them to the running sampler",
		Long: `Change one or more settings. Changes are saved to the settings document and
the running daemon re-applies them immediately (SIGHUP).

Keys:
  ` + strings.Join(config.Keys(), "\n  ") + `

Examples:
  touchmon set retention_days=30
  touchmon set dashboard_refresh_ms=2000 fullscreen=off`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			settings := loadSettings()
			ui.PrintSection("Updating Settings")

			changed := applyAssignments(settings, args, func(status, msg string) {
				ui.PrintStatus(status, msg)
			})
			if changed == 0 {
				ui.PrintSectionEnd()
				return
			}

			if err := config.SaveSettings(settings); err != nil {
				ui.PrintError(fmt.Sprintf("Failed to save settings: %v", err), settings.LogFile)
				ui.PrintSectionEnd()
				return
			}
			ui.PrintStatus("success", "Settings saved to "+config.SettingsPath())

			switch err := process.SignalReload(); {
			case errors.Is(err, process.ErrNotRunning):
				ui.PrintStatus("info", "Sampler is not running, changes apply on next start")
			case err != nil:
				ui.PrintStatus("warning", fmt.Sprintf("Could not notify the sampler: %v", err))
			default:
				ui.PrintStatus("success", "Applied to the running sampler")
			}
			ui.PrintSectionEnd()
		},
	}
}

// applyAssignments applies key=value arguments to s, reporting each one, and
// returns how many were applied
func applyAssignments(s *config.Settings, args []string, report func(status, msg string)) int {
	changed := 0
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			report("error", fmt.Sprintf("Invalid format: %s (expected key=value)", arg))
			continue
		}
		if err := s.Set(key, value); err != nil {
			report("error", err.Error())
			continue
		}
		report("success", fmt.Sprintf("Set %s to %s", key, value))
		changed++
	}
	return changed
}
