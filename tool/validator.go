package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gate-labs/qualgate/config"
	"github.com/gate-labs/qualgate/core"
)

// Validator partitions descriptors by availability using the shared
// detection service and produces environment reports with substitution
// suggestions.
type Validator struct {
	detection *DetectionService
	cfg       *config.Config
	logger    *slog.Logger
}

// NewValidator creates a validator bound to the shared detection service.
func NewValidator(detection *DetectionService, cfg *config.Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{detection: detection, cfg: cfg, logger: logger}
}

// ValidationResult is the availability partition of a descriptor list.
type ValidationResult struct {
	Available   []core.Descriptor
	Unavailable []core.Descriptor
}

// ValidateAndFilterTools partitions descriptors into available and
// unavailable. Unknown tool names come back unavailable with a logged
// warning; they never crash the run. Stack auto-detection descriptors
// are always considered available — the wrapper resolves their concrete
// tools later against the same cache.
func (v *Validator) ValidateAndFilterTools(ctx context.Context, descriptors []core.Descriptor) ValidationResult {
	var result ValidationResult
	for _, d := range descriptors {
		if d.Mode == core.ModeStackAutoDetect {
			result.Available = append(result.Available, d)
			continue
		}
		if v.detection.IsAvailable(ctx, d.Name) {
			result.Available = append(result.Available, d)
			continue
		}
		// Environment gap: the tool is mapped but absent from the host.
		v.logger.Warn("tool unavailable",
			"tool", d.Name,
			"dimension", d.Dimension.String(),
			"reason", core.CodeEnvironment)
		result.Unavailable = append(result.Unavailable, d)
	}
	return result
}

// MissingPrerequisite pairs a tool with one declared dependency that is
// absent, distinct from the tool itself being unavailable.
type MissingPrerequisite struct {
	Tool         string
	Prerequisite string
}

// ValidatePrerequisites checks the declared prerequisites of each
// descriptor's tool (for example a test runner needing an interpreter).
func (v *Validator) ValidatePrerequisites(ctx context.Context, descriptors []core.Descriptor) []MissingPrerequisite {
	var missing []MissingPrerequisite
	for _, d := range descriptors {
		for _, prereq := range v.cfg.Tools[d.Name].Prerequisites {
			if v.detection.IsAvailable(ctx, prereq) {
				continue
			}
			v.logger.Warn("tool prerequisite missing",
				"tool", d.Name, "prerequisite", prereq)
			missing = append(missing, MissingPrerequisite{Tool: d.Name, Prerequisite: prereq})
		}
	}
	return missing
}

// ValidationReport summarizes an availability partition for operators.
type ValidationReport struct {
	AvailabilityRate float64             `json:"availability_rate"`
	Alternatives     map[string][]string `json:"alternatives,omitempty"`
	Recommendations  []string            `json:"recommendations,omitempty"`
}

// GenerateValidationReport derives the availability rate and, for each
// unavailable tool, configured substitutes that are actually present.
func (v *Validator) GenerateValidationReport(ctx context.Context, result ValidationResult) ValidationReport {
	total := len(result.Available) + len(result.Unavailable)
	report := ValidationReport{AvailabilityRate: 100}
	if total > 0 {
		report.AvailabilityRate = float64(len(result.Available)) / float64(total) * 100
	}
	if len(result.Unavailable) == 0 {
		return report
	}

	report.Alternatives = map[string][]string{}
	for _, d := range result.Unavailable {
		alts := v.cfg.AlternativesFor(d.Name)
		var present []string
		for _, alt := range alts {
			if v.detection.IsAvailable(ctx, alt) {
				present = append(present, alt)
			}
		}
		if len(present) > 0 {
			report.Alternatives[d.Name] = present
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("replace %s with available alternative %s", d.Name, present[0]))
		} else {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("install %s for dimension %s", d.Name, d.Dimension))
		}
	}
	sort.Strings(report.Recommendations)
	return report
}
