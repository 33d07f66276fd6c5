package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"touchmon/internal/config"
	"touchmon/internal/process"
	"touchmon/internal/ui"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current settings",
		Long: `Show the effective settings: the settings document merged with TOUCHMON_*
environment overrides and defaults.

Use 'touchmon set key=value' to change a setting.`,
		Run: func(cmd *cobra.Command, args []string) {
			settings := loadSettings()

			ui.PrintSection("Settings")
			values := settings.Values()
			pairs := make([]ui.KeyValue, 0, len(values))
			for _, key := range config.Keys() {
				v := values[key]
				if v == "" {
					v = "(not set)"
				}
				pairs = append(pairs, ui.KeyValue{Key: key, Value: v})
			}
			fmt.Print(ui.CreateList(pairs))
			ui.PrintSectionEnd()

			ui.PrintSection("Files")
			fmt.Print(ui.CreateList([]ui.KeyValue{
				{Key: "Settings", Value: config.SettingsPath()},
				{Key: "Lock", Value: process.PIDFilePath()},
			}))
			ui.PrintSectionEnd()
		},
	}
}
