package commands

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"touchmon/internal/history"
	"touchmon/internal/logger"
	"touchmon/internal/process"
	"touchmon/internal/ui"
)

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd() *cobra.Command {
	var rangeLabel string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Sample in the foreground with a live terminal dashboard",
		Long: `Run the sampler in the foreground and show live values, range charts and
statistics. The dashboard owns the store, so the background sampler must be
stopped first.

Keys:
  1-4, tab   switch range (5 min, 30 min, 2 hours, 12 hours)
  e          export the selected range to CSV
  q          quit

Examples:
  touchmon dashboard
  touchmon dashboard --range 2h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()

			// `touchmon set` signals whoever holds the store lock
			hup, stopHup := notifyHangup()
			defer stopHup()

			rng, ok := history.Resolve(rangeLabel)
			if !ok {
				ui.PrintStatus("warning", fmt.Sprintf("Unknown range %q, showing %s", rangeLabel, rng))
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := newRuntime(ctx, settings, nil)
			if err != nil {
				if errors.Is(err, process.ErrAlreadyRunning) {
					ui.PrintStatus("error", "The background sampler owns the store, run 'touchmon stop' first")
					return nil
				}
				return err
			}
			defer rt.Close()

			if err := rt.scheduler.SelectRange(rng); err != nil {
				return err
			}

			var opts []tea.ProgramOption
			if settings.Fullscreen {
				opts = append(opts, tea.WithAltScreen())
			}
			program := tea.NewProgram(ui.NewDashboard(ctx, rt.scheduler, settings.ExportsDir), opts...)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return rt.scheduler.Run(gctx)
			})
			g.Go(func() error {
				serveReloads(gctx, rt, hup, nil)
				return nil
			})
			g.Go(func() error {
				defer cancel()
				_, err := program.Run()
				return err
			})

			err = g.Wait()
			logger.Info("Dashboard closed")
			return err
		},
	}

	cmd.Flags().StringVarP(&rangeLabel, "range", "r", history.DefaultRange.Label, "History range: 5m, 30m, 2h, 12h")
	return cmd
}
