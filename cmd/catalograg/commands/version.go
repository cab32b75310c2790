package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalograg/internal/version"
)

// newVersionCmd prints build metadata injected via -ldflags.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the catalograg version, git commit, and build date",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
