package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/tool"
)

// NewDoctorCmd creates the "doctor" subcommand.
func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Probe configured tools and report what is missing",
		RunE:  runDoctor,
	}

	cmd.Flags().StringP("config", "c", "", "Path to a qualgate YAML configuration file")
	cmd.Flags().StringP("scope", "s", "", "Scope to check: all | frontend | backend")
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	cmd.Flags().String("format", "text", "Output format: json | text")

	return cmd
}

type doctorReport struct {
	Tools      []core.DetectionResult `json:"tools"`
	Validation tool.ValidationReport  `json:"validation"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := resolveLogger(cmd)

	scopeName, _ := cmd.Flags().GetString("scope")
	if scopeName == "" {
		scopeName = string(core.ScopeAll)
	}

	mapper := tool.NewMapper(cfg, logger)
	descriptors := mapper.Map(core.KnownDimensions(), core.Scope(scopeName))
	if len(descriptors) == 0 {
		return exitError(exitNothingToDo, "no tools configured for scope %q", scopeName)
	}

	critical := map[string]bool{}
	for name, settings := range cfg.Tools {
		critical[name] = settings.Critical
	}
	detection := tool.NewDetectionService(tool.DetectionServiceConfig{
		Logger:   logger,
		Critical: critical,
	})

	var names []string
	seen := map[string]struct{}{}
	for _, d := range descriptors {
		if d.Mode == core.ModeStackAutoDetect {
			continue
		}
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		names = append(names, d.Name)
	}
	sort.Strings(names)
	detection.DetectAll(cmd.Context(), names, nil)

	validator := tool.NewValidator(detection, cfg, logger)
	validation := validator.ValidateAndFilterTools(cmd.Context(), descriptors)
	valReport := validator.GenerateValidationReport(cmd.Context(), validation)

	results := make([]core.DetectionResult, 0, len(names))
	for _, name := range names {
		results = append(results, detection.Result(cmd.Context(), name))
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "json" {
		data, err := json.MarshalIndent(doctorReport{Tools: results, Validation: valReport}, "", "  ")
		if err != nil {
			return exitError(exitFailure, "encoding doctor report: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		renderDoctor(cmd, results, valReport)
	}

	if len(validation.Available) == 0 {
		return exitError(exitEnvNotReady, "no configured tools are available")
	}
	return nil
}

func renderDoctor(cmd *cobra.Command, results []core.DetectionResult, valReport tool.ValidationReport) {
	out := cmd.OutOrStdout()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tAVAILABLE\tVERSION\tSOURCE")
	for _, res := range results {
		version := res.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", res.ToolName, res.Available, version, res.Source)
	}
	tw.Flush()

	fmt.Fprintf(out, "\nAvailability: %.0f%%\n", valReport.AvailabilityRate)
	for _, rec := range valReport.Recommendations {
		fmt.Fprintf(out, "  - %s\n", rec)
	}
}
