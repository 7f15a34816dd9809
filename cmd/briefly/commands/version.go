package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/internal/version"
)

// NewVersionCmd constructs the `briefly version` command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("briefly %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.BuildDate)
		},
	}
}
