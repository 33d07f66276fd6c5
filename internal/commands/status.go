package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"

	"touchmon/internal/metrics"
	"touchmon/internal/process"
	"touchmon/internal/store"
	"touchmon/internal/ui"
	"touchmon/pkg/utils"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sampler state and the latest sample",
		Long: `Display:
  • System information (hostname, OS, uptime, memory)
  • Sampler state (running PID, samples written, storage errors)
  • Latest sample published by the running daemon
  • Store location and size

Examples:
  touchmon status`,
		Run: func(cmd *cobra.Command, args []string) {
			settings := loadSettings()
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			ui.PrintSection("System Information")
			hostname, _ := os.Hostname()
			systemData := []ui.KeyValue{{Key: "Hostname", Value: hostname}}
			if info, err := host.InfoWithContext(ctx); err == nil {
				systemData = append(systemData,
					ui.KeyValue{Key: "OS", Value: fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)},
					ui.KeyValue{Key: "Uptime", Value: utils.FormatDuration(time.Duration(info.Uptime) * time.Second)},
				)
			}
			if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
				systemData = append(systemData, ui.KeyValue{Key: "Memory", Value: utils.FormatBytes(int64(vm.Total))})
			}
			fmt.Print(ui.CreateList(systemData))
			ui.PrintSectionEnd()

			ui.PrintSection("Sampler")
			running, pid, err := process.Check()
			switch {
			case err != nil:
				ui.PrintStatus("error", fmt.Sprintf("Cannot read lock file: %v", err))
			case running:
				ui.PrintStatus("success", fmt.Sprintf("Sampler is running (PID %d)", pid))
			default:
				ui.PrintStatus("warning", "Sampler is not running, start it with 'touchmon start'")
			}

			snap, fresh := metrics.LoadSnapshot()
			if running && snap != nil {
				fmt.Print(ui.CreateList([]ui.KeyValue{
					{Key: "Samples written", Value: fmt.Sprintf("%d", snap.SamplesWritten)},
					{Key: "Storage errors", Value: fmt.Sprintf("%d", snap.StorageErrors)},
					{Key: "Network", Value: ui.RenderNetwork(snap.Network)},
				}))
			}
			ui.PrintSectionEnd()

			ui.PrintSection("Latest Sample")
			switch {
			case snap != nil && fresh:
				fmt.Print(ui.RenderLatest(snap.Sample))
				ui.PrintStatus("info", "Taken at "+snap.Sample.Timestamp.Format("2006-01-02 15:04:05"))
			case snap != nil:
				ui.PrintStatus("warning", fmt.Sprintf("No live data since %s", snap.WrittenAt.Format("2006-01-02 15:04:05")))
			default:
				ui.PrintStatus("info", "No live data")
			}
			ui.PrintSectionEnd()

			ui.PrintSection("Store")
			storeData := []ui.KeyValue{
				{Key: "Path", Value: settings.DBPath},
				{Key: "Retention", Value: fmt.Sprintf("%d days", settings.RetentionDays)},
			}
			if _, err := os.Stat(settings.DBPath); err == nil {
				if st, err := store.Open(settings.DBPath); err == nil {
					if n, err := st.Count(ctx); err == nil {
						storeData = append(storeData, ui.KeyValue{Key: "Samples", Value: fmt.Sprintf("%d", n)})
					}
					st.Close()
				}
			}
			fmt.Print(ui.CreateList(storeData))
			ui.PrintSectionEnd()
		},
	}
}
