package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"touchmon/internal/retention"
	"touchmon/internal/ui"
)

// NewPruneCmd creates the prune command
func NewPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete samples older than the retention window now",
		Long: `Run one retention pass without waiting for the daemon's schedule.
--days overrides retention_days for this run only.

Examples:
  touchmon prune
  touchmon prune --days 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()
			if !cmd.Flags().Changed("days") {
				days = settings.RetentionDays
			}
			if err := retention.ValidateDays(days); err != nil {
				return err
			}

			st, lock, err := openStoreExclusive(settings)
			if err != nil {
				return err
			}
			defer lock.Release()
			defer st.Close()

			rm, err := retention.NewManager(st, days, nil)
			if err != nil {
				return err
			}
			res, err := rm.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			ui.PrintStatus("success", fmt.Sprintf("Deleted %d samples older than %s",
				res.Deleted, res.Cutoff.Format("2006-01-02 15:04:05")))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default retention_days)")
	return cmd
}
