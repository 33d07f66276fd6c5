package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"touchmon/internal/history"
	"touchmon/internal/logger"
	"touchmon/internal/ui"
)

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load an exported CSV back into the store",
		Long: `Upsert the samples of a touchmon CSV export into the store. Samples are keyed
by timestamp, so importing the same file twice changes nothing.

Examples:
  touchmon import ~/touchui/exports/touchmon_20240501_120000.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := loadSettings()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			samples, err := history.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			st, lock, err := openStoreExclusive(settings)
			if err != nil {
				return err
			}
			defer lock.Release()
			defer st.Close()

			n, err := st.UpsertBatch(cmd.Context(), samples)
			if err != nil {
				return err
			}
			logger.Info("Imported %d samples from %s", n, args[0])
			ui.PrintStatus("success", fmt.Sprintf("Imported %d samples into %s", n, st.Path()))
			return nil
		},
	}
}
