package commands

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/ocuroot/ud/about"
	"github.com/spf13/cobra"
)

var cleanup func()

// RootCmd runs a deployment from the config file given as its argument
var RootCmd = &cobra.Command{
	Use:   "ud [config]",
	Short: "A tool to run deployment based on configuration files",
	Long: `ud checks out a git repository, copies resource files into it and
runs a deployment tool inside the checkout, all driven by a YAML config file.

Resources are read from the resources directory next to the config file.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		initLogs(cmd.ErrOrStderr(), verbose)

		log.Debug("Starting ud", "version", about.Version, "args", os.Args[1:])
		cleanup = setupTelemetry()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cleanup != nil {
			cleanup()
		}
	},
	RunE: runDeploy,
}

func initLogs(w io.Writer, verbose bool) {
	log.SetOutput(w)
	if !isTerminal(w) {
		log.SetFormatter(log.LogfmtFormatter)
	}

	if verbose {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
		return
	}
	log.SetLevel(log.WarnLevel)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	RootCmd.Flags().Bool("keep-checkout", false, "Keep the checkout directory after deployment (only applies to clean mode)")
}
