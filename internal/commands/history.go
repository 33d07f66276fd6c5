package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"touchmon/internal/history"
	"touchmon/internal/metrics"
	"touchmon/internal/scheduler"
	"touchmon/internal/store"
	"touchmon/internal/ui"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	var (
		rangeLabel string
		byTime     bool
		rows       int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show statistics and charts for a history range",
		Long: `Show per-series statistics, sparklines and the newest samples of a range.

By default a range is the newest N samples at the configured sampling
cadence (300 samples for "5 min" at 1000ms). --by-time selects samples by
wall clock instead, which differs when sampling was paused.

Ranges: ` + strings.Join(history.Labels(), ", ") + ` (aliases 5m, 30m, 2h, 12h)

Examples:
  touchmon history
  touchmon history --range 2h --by-time
  touchmon history -r 30m -n 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()

			rng, ok := history.Resolve(rangeLabel)
			if !ok {
				ui.PrintStatus("warning", fmt.Sprintf("Unknown range %q, showing %s", rangeLabel, rng))
			}

			if _, err := os.Stat(settings.DBPath); os.IsNotExist(err) {
				ui.PrintStatus("info", "No samples yet, start the sampler with 'touchmon start'")
				return nil
			}

			st, err := store.Open(settings.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			period := schedulerSettings(settings).SampleInterval
			samples, err := scheduler.QueryRange(cmd.Context(), st, rng, period, byTime, time.Now())
			if err != nil {
				return err
			}

			mode := fmt.Sprintf("newest %d samples", rng.Rows(period))
			if byTime {
				mode = "by wall clock"
			}
			ui.PrintSection(fmt.Sprintf("History: %s (%s)", rng, mode))
			fmt.Print(ui.RenderSummaryTable(metrics.Summarize(samples)))
			ui.PrintSectionEnd()

			if len(samples) == 0 {
				return nil
			}

			ui.PrintSection("Charts")
			fmt.Print(ui.RenderSparklines(samples, ui.DefaultWidth-8))
			ui.PrintSectionEnd()

			if rows > 0 {
				ui.PrintSection("Newest Samples")
				fmt.Print(ui.RenderSampleTable(samples, rows))
				ui.PrintSectionEnd()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rangeLabel, "range", "r", history.DefaultRange.Label, "History range")
	cmd.Flags().BoolVar(&byTime, "by-time", false, "Select the range by wall clock instead of sample count")
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of newest samples to list (0 to hide)")
	return cmd
}
