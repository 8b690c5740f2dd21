package config

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

// WriteSummary prints the release configuration for the operator.
// In verbose mode the whole config is dumped as YAML.
func (c *Config) WriteSummary(w io.Writer, verbose bool) error {
	if verbose {
		out, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n%s", headingStyle.Render("Successfully parsed config:"), out)
		return err
	}

	r := c.Release
	line := func(label string, value any) {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(label+":"), valueStyle.Render(fmt.Sprint(value)))
	}

	fmt.Fprintln(w, headingStyle.Render("Release configuration:"))
	line("Clean", r.Clean)
	line("Repository", r.Repository)
	line("Branch", r.Branch)
	line("Merge", r.Merge)
	line("Tool", r.Tool)
	line("Tag", r.Tag)
	line("Resources", fmt.Sprintf("%d items", len(r.Resources)))
	for i, res := range r.Resources {
		fmt.Fprintf(w, "    [%d]: file='%s'\n", i, res.File)
		if res.CopyPath != "" {
			fmt.Fprintf(w, "         copy='%s'\n", res.CopyPath)
		}
	}
	return nil
}
