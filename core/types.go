// Package core provides the foundational types for the qualgate engine.
//
// This package contains:
//   - Identity types: Dimension, Scope, ToolCategory
//   - Data carriers: Descriptor, DetectionResult, ToolResult, Finding
//   - Aggregates: RunSummary, Classification
//   - The structured Error type shared by every subsystem
package core

import (
	"sort"
	"time"
)

// Dimension is a named category of quality check.
// The set is open: configuration may introduce project-specific dimensions.
type Dimension string

const (
	DimensionLint     Dimension = "lint"
	DimensionFormat   Dimension = "format"
	DimensionTest     Dimension = "test"
	DimensionSecurity Dimension = "security"
	DimensionBuild    Dimension = "build"
	DimensionDocs     Dimension = "docs"
)

// String returns the string representation of the Dimension.
func (d Dimension) String() string {
	return string(d)
}

// KnownDimensions returns the built-in dimension names in sorted order.
func KnownDimensions() []Dimension {
	dims := []Dimension{
		DimensionBuild,
		DimensionDocs,
		DimensionFormat,
		DimensionLint,
		DimensionSecurity,
		DimensionTest,
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}

// Scope is a named project subset a dimension applies to.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeFrontend Scope = "frontend"
	ScopeBackend  Scope = "backend"
)

// String returns the string representation of the Scope.
func (s Scope) String() string {
	return string(s)
}

// ToolCategory is the functional classification of a tool name.
type ToolCategory string

const (
	CategoryPackageManager    ToolCategory = "package-manager"
	CategoryCompiler          ToolCategory = "compiler"
	CategoryBundler           ToolCategory = "bundler"
	CategoryDependencyManager ToolCategory = "dependency-manager"
	CategoryLinter            ToolCategory = "linter"
	CategoryFormatter         ToolCategory = "formatter"
	CategoryTestRunner        ToolCategory = "test-runner"
	CategorySecurityScanner   ToolCategory = "security-scanner"
	CategoryDimension         ToolCategory = "dimension"
	CategoryGeneric           ToolCategory = "generic"
)

// DescriptorMode distinguishes a specifically-named tool invocation from
// "validate everything for this dimension" stack auto-detection.
// Wrappers must branch on this before any stack-detection logic runs.
type DescriptorMode string

const (
	// ModeSpecificTool runs exactly the named tool and nothing else.
	ModeSpecificTool DescriptorMode = "specific"

	// ModeStackAutoDetect permits the wrapper to infer the tool set for the
	// descriptor's dimension from the project layout.
	ModeStackAutoDetect DescriptorMode = "stack-auto"
)

// DefaultToolTimeout is applied when per-tool configuration omits one.
const DefaultToolTimeout = 60 * time.Second

// Descriptor is the immutable description of one planned tool invocation.
// Built by the mapper; never mutated afterwards.
type Descriptor struct {
	Name      string         `json:"name"`
	Dimension Dimension      `json:"dimension"`
	Scope     Scope          `json:"scope"`
	Args      []string       `json:"args,omitempty"`
	Timeout   time.Duration  `json:"timeout"`
	Mode      DescriptorMode `json:"mode"`
}

// Key returns the deterministic ordering key for a descriptor:
// dimension first, then tool name.
func (d Descriptor) Key() string {
	return string(d.Dimension) + "/" + d.Name
}

// DetectionSource records where a tool was found during probing.
type DetectionSource string

const (
	SourceSystem     DetectionSource = "system"
	SourceVirtualenv DetectionSource = "virtualenv"
	SourceCache      DetectionSource = "cache"
)

// DetectionResult is the cached outcome of one availability probe.
type DetectionResult struct {
	ToolName  string          `json:"tool_name"`
	Available bool            `json:"available"`
	Version   string          `json:"version,omitempty"`
	Critical  bool            `json:"critical"`
	Source    DetectionSource `json:"source"`
}

// Status is the terminal state of one tool invocation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusWarning Status = "WARNING"
	StatusFailure Status = "FAILURE"
	StatusSkipped Status = "SKIPPED"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one normalized diagnostic reported by a tool.
type Finding struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column,omitempty"`
	Rule     string   `json:"rule,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ToolResult is the normalized outcome of one tool invocation.
type ToolResult struct {
	Tool          string    `json:"tool"`
	Dimension     Dimension `json:"dimension"`
	Success       bool      `json:"success"`
	Status        Status    `json:"status"`
	ExecutionTime int64     `json:"execution_time_ms"`
	Findings      []Finding `json:"findings,omitempty"`
	Errors        []string  `json:"errors,omitempty"`

	// ReasonCode is set for FAILURE and SKIPPED results so downstream
	// consumers can tell a timeout from a nonzero exit from an absent tool.
	ReasonCode string `json:"reason_code,omitempty"`
}

// RunSummary aggregates a result list by status.
type RunSummary struct {
	Total    int   `json:"total"`
	Passed   int   `json:"passed"`
	Warnings int   `json:"warnings"`
	Failed   int   `json:"failed"`
	Skipped  int   `json:"skipped"`
	Duration int64 `json:"duration_ms"`
}

// Classification is the run-level verdict the caller maps to an exit code.
type Classification string

const (
	ClassificationPass         Classification = "pass"
	ClassificationPassWarnings Classification = "pass-with-warnings"
	ClassificationFail         Classification = "fail"
)

// Summarize derives a RunSummary from a result list.
func Summarize(results []ToolResult, duration time.Duration) RunSummary {
	s := RunSummary{Total: len(results), Duration: duration.Milliseconds()}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Passed++
		case StatusWarning:
			s.Warnings++
		case StatusFailure:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Classify maps a summary to the run-level verdict. Skipped tools never
// fail a run on their own; a run where every tool was unavailable is
// handled upstream as an environment error before results exist.
func Classify(s RunSummary) Classification {
	switch {
	case s.Failed > 0:
		return ClassificationFail
	case s.Warnings > 0:
		return ClassificationPassWarnings
	default:
		return ClassificationPass
	}
}

// SortResults orders results by dimension then tool name, making report
// ordering deterministic regardless of completion order.
func SortResults(results []ToolResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Dimension != results[j].Dimension {
			return results[i].Dimension < results[j].Dimension
		}
		return results[i].Tool < results[j].Tool
	})
}
