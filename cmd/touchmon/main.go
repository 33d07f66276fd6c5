package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"touchmon/internal/commands"
	"touchmon/internal/ui"
)

// VERSION is set during build via ldflags
var VERSION string

// getCurrentVersion retrieves the current version from build flags or version.txt
func getCurrentVersion() string {
	version := VERSION
	if version == "" {
		if versionData, err := os.ReadFile("version.txt"); err == nil {
			version = strings.TrimSpace(string(versionData))
		}
	}
	if version == "" {
		version = "dev"
	}
	return version
}

func main() {
	commands.GetCurrentVersion = getCurrentVersion

	rootCmd := &cobra.Command{
		Use:                "touchmon",
		Short:              "Host telemetry sampler and history for touch dashboards",
		DisableSuggestions: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Printf("v%s\n", getCurrentVersion())
				return nil
			}

			ui.PrintHeader()

			ui.PrintSection("Quick Start")
			fmt.Print(ui.CreateList([]ui.KeyValue{
				{Key: "Start sampling", Value: "touchmon start"},
				{Key: "Live dashboard", Value: "touchmon dashboard"},
				{Key: "Check status", Value: "touchmon status"},
				{Key: "Run at boot", Value: "touchmon service install"},
			}))
			ui.PrintSectionEnd()

			ui.PrintSection("Commands")
			fmt.Print(ui.CreateList([]ui.KeyValue{
				{Key: "status", Value: "Sampler state and latest sample"},
				{Key: "history", Value: "Range statistics and charts"},
				{Key: "export", Value: "Write a range to CSV"},
				{Key: "import", Value: "Load a CSV export back"},
				{Key: "prune", Value: "Apply retention now"},
				{Key: "set", Value: "Change settings"},
				{Key: "config", Value: "Show settings"},
			}))
			ui.PrintSectionEnd()

			ui.PrintStatus("info", "Use 'touchmon [command] --help' for detailed help")
			return nil
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		commands.NewDaemonCmd(),
		commands.NewStartCmd(),
		commands.NewStopCmd(),
		commands.NewRestartCmd(),
		commands.NewStatusCmd(),
		commands.NewDashboardCmd(),
		commands.NewHistoryCmd(),
		commands.NewExportCmd(),
		commands.NewImportCmd(),
		commands.NewPruneCmd(),
		commands.NewConfigCmd(),
		commands.NewSetCmd(),
		commands.NewServiceCmd(),
		commands.NewCleanupCmd(),
		commands.NewVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		ui.PrintStatus("error", err.Error())
		os.Exit(1)
	}
}
