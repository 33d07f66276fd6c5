package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// GetCurrentVersion is set by main.go so commands can report the build
// version without importing main
var GetCurrentVersion = func() string { return "dev" }

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "touchmon v%s (%s %s/%s)\n",
				GetCurrentVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
