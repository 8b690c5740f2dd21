package commands

import (
	"fmt"
	"strings"

	"github.com/ocuroot/ud/about"
	"github.com/spf13/cobra"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Displays the current ud version",
	Long:  `Displays the current ud version.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		versionParts := strings.Split(about.Version, "-")
		fmt.Fprintln(cmd.OutOrStdout(), "ud version: "+versionParts[0])
		if len(versionParts) > 1 {
			fmt.Fprintln(cmd.OutOrStdout(), "Build: "+strings.Join(versionParts[1:], "-"))
		}
	},
}

func init() {
	RootCmd.AddCommand(VersionCmd)
}
