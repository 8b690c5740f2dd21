package deploy

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/ocuroot/ud/config"
	"github.com/ocuroot/ud/lib/process"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RunTool runs the configured tool in workDir and returns its exit code.
// Nothing is run for a tool with an empty command. A nonzero exit code, or a
// tool that could not be started, is returned as a *ToolFailure.
func RunTool(ctx context.Context, runner process.Runner, tool config.Tool, workDir string) (int, error) {
	if tool.IsEmpty() {
		log.Debug("No tool configured")
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "run tool")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", tool.Command),
		attribute.StringSlice("arguments", tool.Args()),
	)

	log.Info("Executing tool", "command", tool.Command, "args", tool.Args(), "dir", workDir)

	code, err := runner.Run(ctx, workDir, tool.Command, tool.Args()...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return -1, &ToolFailure{
			Command:   tool.Command,
			Arguments: tool.Args(),
			ExitCode:  -1,
			Err:       err,
		}
	}

	span.SetAttributes(attribute.Int("exit_code", code))
	log.Info("Tool exited", "command", tool.Command, "exit_code", code)

	if code != 0 {
		span.SetStatus(codes.Error, "nonzero exit code")
		return code, &ToolFailure{
			Command:   tool.Command,
			Arguments: tool.Args(),
			ExitCode:  code,
		}
	}
	return 0, nil
}
