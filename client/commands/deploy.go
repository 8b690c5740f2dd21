package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ocuroot/ud/config"
	"github.com/ocuroot/ud/deploy"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
)

var (
	checkMark = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).SetString("✓")
	infoMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).SetString("›")
	pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

type deployFlags struct {
	Verbose      bool
	KeepCheckout bool
}

func readDeployFlags(flags *pflag.FlagSet) (deployFlags, error) {
	var (
		f   deployFlags
		err error
	)
	if f.Verbose, err = flags.GetBool("verbose"); err != nil {
		return f, err
	}
	if f.KeepCheckout, err = flags.GetBool("keep-checkout"); err != nil {
		return f, err
	}
	return f, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "ud deploy")
	defer span.End()

	configPath := args[0]
	flags, err := readDeployFlags(cmd.Flags())
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("config", configPath),
		attribute.Bool("keep_checkout", flags.KeepCheckout),
	)

	stdout := cmd.OutOrStdout()
	if flags.Verbose {
		fmt.Fprintf(stdout, "Reading configuration from: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Check(); err != nil {
		return err
	}

	if !flags.Verbose {
		fmt.Fprintf(stdout, "Configuration loaded successfully from %s\n", configPath)
	}
	if err := cfg.WriteSummary(stdout, flags.Verbose); err != nil {
		return err
	}

	opts, err := deployOptions(configPath, flags)
	if err != nil {
		return err
	}

	outcome, err := deploy.New().Run(ctx, cfg.Release, opts)
	if deploy.IsPathTraversal(err) {
		log.Debug("Resource path rejected", "config", configPath, "error", err)
	}
	report(stdout, cfg.Release, outcome, err, flags.Verbose)
	return err
}

func deployOptions(configPath string, flags deployFlags) (deploy.Options, error) {
	wd, err := os.Getwd()
	if err != nil {
		return deploy.Options{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	configDir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return deploy.Options{}, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return deploy.Options{
		BaseDir:      wd,
		ConfigDir:    configDir,
		KeepCheckout: flags.KeepCheckout,
	}, nil
}

// report prints what the pipeline got done. Errors are printed by cobra.
func report(w io.Writer, release config.Release, outcome *deploy.Outcome, err error, verbose bool) {
	if outcome == nil {
		return
	}

	checkedOut := err == nil || errors.Is(err, deploy.ErrToolFailed)
	if !checkedOut {
		return
	}

	if verbose {
		fmt.Fprintf(w, "%s Repository successfully checked out to: %s", checkMark, pathStyle.Render(outcome.WorkDir))
		if outcome.Commit != "" {
			fmt.Fprintf(w, " (%s)", outcome.Commit)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s Repository checked out successfully\n", checkMark)
	}

	if outcome.ToolRan && err == nil {
		fmt.Fprintf(w, "%s Tool '%s' completed successfully\n", checkMark, release.Tool)
	}

	if release.Clean && !outcome.CleanedUp && outcome.CleanupErr == nil {
		fmt.Fprintf(w, "%s Keeping checkout directory: %s\n", infoMark, pathStyle.Render(outcome.WorkDir))
	}
}
