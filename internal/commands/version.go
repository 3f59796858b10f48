package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func printVersion(w io.Writer) {
	version := versionInfo.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "standupbot %s\n", version)
	if versionInfo.commit != "" && versionInfo.commit != "none" {
		fmt.Fprintf(w, "  commit: %s\n", versionInfo.commit)
	}
	if versionInfo.date != "" && versionInfo.date != "unknown" {
		fmt.Fprintf(w, "  built:  %s\n", versionInfo.date)
	}
}
