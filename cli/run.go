package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/otel"
	"github.com/gate-labs/qualgate/report"
	otelapi "go.opentelemetry.io/otel"
)

// Exit codes. Both pass and pass-with-warnings exit zero so warnings
// never break CI pipelines that only gate on failures.
const (
	exitSuccess     = 0
	exitFailure     = 1
	exitNothingToDo = 2
	exitEnvNotReady = 3
	exitTimeout     = 10
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run quality checks against the current project",
		RunE:  runRun,
	}

	cmd.Flags().StringP("config", "c", "", "Path to a qualgate YAML configuration file")
	cmd.Flags().StringP("mode", "m", "", "Configured mode preset (fast | full | dod)")
	cmd.Flags().StringArrayP("dimension", "d", nil, "Dimension to run (repeatable, overrides mode)")
	cmd.Flags().StringP("scope", "s", "", "Scope to check: all | frontend | backend")
	cmd.Flags().StringArray("changed-file", nil, "Restrict checks to the given file (repeatable)")
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	cmd.Flags().StringP("output", "o", "", "Write the JSON report to a file (default: stdout)")
	cmd.Flags().String("format", "text", "Output format: json | text")
	cmd.Flags().Duration("timeout", 0, "Bound the whole run; pending tools are skipped when it expires")
	cmd.Flags().String("store-path", "", "Path to the tool definition store (default: ~/.qualgate/qualgate.db)")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP collector endpoint for trace export")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	engine, store, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	if store != nil {
		defer closeStore(store)
	}

	opts := buildRunOptions(cmd)

	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	if endpoint != "" {
		shutdown, err := otel.SetupTracing(cmd.Context(), otel.ExporterConfig{Endpoint: endpoint})
		if err != nil {
			return exitError(exitFailure, "setting up tracing: %v", err)
		}
		defer func() { _ = shutdown(cmd.Context()) }()

		tracing := otel.NewTracingHandler(otelapi.GetTracerProvider().Tracer("qualgate"))
		opts.EventHandler = qualgate.EventHandler(tracing.Handle)
	}

	rep, runErr := engine.Run(cmd.Context(), opts)

	if err := writeReport(cmd, rep); err != nil {
		return err
	}

	return classifyOutcome(rep, runErr)
}

func buildRunOptions(cmd *cobra.Command) qualgate.Options {
	mode, _ := cmd.Flags().GetString("mode")
	dimensions, _ := cmd.Flags().GetStringArray("dimension")
	scopeName, _ := cmd.Flags().GetString("scope")
	changed, _ := cmd.Flags().GetStringArray("changed-file")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	return qualgate.Options{
		Dimensions:   dimensions,
		Scope:        scopeName,
		Mode:         mode,
		ChangedFiles: changed,
		RunTimeout:   timeout,
	}
}

func writeReport(cmd *cobra.Command, rep report.Report) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	if outputPath != "" {
		data, err := rep.Encode()
		if err != nil {
			return exitError(exitFailure, "encoding report: %v", err)
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return exitError(exitFailure, "writing report: %v", err)
		}
	}

	switch format {
	case "json":
		data, err := rep.Encode()
		if err != nil {
			return exitError(exitFailure, "encoding report: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "text":
		renderReport(cmd.OutOrStdout(), rep)
	default:
		return exitError(exitFailure, "unknown format %q (want json or text)", format)
	}
	return nil
}

// classifyOutcome maps the run outcome onto the process exit code.
func classifyOutcome(rep report.Report, runErr error) error {
	if runErr != nil {
		switch {
		case errors.Is(runErr, core.ErrNothingToDo):
			return exitError(exitNothingToDo, "nothing to do: %v", runErr)
		case errors.Is(runErr, core.ErrEnvironmentNotReady):
			return exitError(exitEnvNotReady, "environment not ready: %v", runErr)
		case core.ErrorCode(runErr) == core.CodeTimeout:
			return exitError(exitTimeout, "run timed out: %v", runErr)
		default:
			return exitError(exitFailure, "%v", runErr)
		}
	}

	if rep.Classification == core.ClassificationFail {
		return exitError(exitFailure, "quality checks failed")
	}
	return nil
}
