package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"touchmon/internal/history"
	"touchmon/internal/scheduler"
	"touchmon/internal/store"
	"touchmon/internal/ui"
	"touchmon/pkg/utils"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var (
		rangeLabel string
		dir        string
		byTime     bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a history range to CSV",
		Long: `Write the samples of a range to touchmon_YYYYMMDD_HHMMSS.csv in the exports
directory (exports_dir, default ~/touchui/exports).

Columns: ts,cpu,ram,temp,up_kb,down_kb. A missing temperature is written as -1.
An empty range writes no file.

Examples:
  touchmon export
  touchmon export --range 12h --dir /media/usb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()
			if dir == "" {
				dir = settings.ExportsDir
			}
			dir = utils.ExpandHome(dir)

			rng, ok := history.Resolve(rangeLabel)
			if !ok {
				ui.PrintStatus("warning", fmt.Sprintf("Unknown range %q, exporting %s", rangeLabel, rng))
			}

			if _, err := os.Stat(settings.DBPath); os.IsNotExist(err) {
				ui.PrintStatus("warning", "No data to export")
				return nil
			}

			st, err := store.Open(settings.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			period := schedulerSettings(settings).SampleInterval
			_, err = ui.WithSpinnerResult("Exporting "+rng.Label, func() (string, error) {
				now := time.Now()
				samples, err := scheduler.QueryRange(cmd.Context(), st, rng, period, byTime, now)
				if err != nil {
					return "", err
				}
				path, err := history.ExportToDir(dir, samples, now)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Exported %d samples to %s", len(samples), path), nil
			}, history.ErrNoData)
			if errors.Is(err, history.ErrNoData) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&rangeLabel, "range", "r", history.DefaultRange.Label, "History range")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Target directory (default exports_dir)")
	cmd.Flags().BoolVar(&byTime, "by-time", false, "Select the range by wall clock instead of sample count")
	return cmd
}
