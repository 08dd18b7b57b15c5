package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sparkwin/wlscan/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		v := version.Version
		if v == "" {
			v = "devel"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wlscan %s (%s, %s)\n", v, version.Revision, version.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
