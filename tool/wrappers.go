package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/pkgmgr"
)

// LintWrapper runs linters. Violations on a clean exit or a nonzero exit
// with only warning-grade findings grade as WARNING; error-grade findings
// grade as FAILURE.
type LintWrapper struct {
	deps Deps
}

// NewLintWrapper constructs the linter wrapper.
func NewLintWrapper(deps Deps) (Wrapper, error) {
	return &LintWrapper{deps: deps}, nil
}

// Run implements Wrapper.
func (w *LintWrapper) Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult {
	return runCommand(ctx, w.deps, desc, desc.Name, desc.Args, files, core.SeverityError, true)
}

// FormatWrapper runs formatters in check mode. Files needing formatting
// are warnings, not failures: the code still builds.
type FormatWrapper struct {
	deps Deps
}

// NewFormatWrapper constructs the formatter wrapper.
func NewFormatWrapper(deps Deps) (Wrapper, error) {
	return &FormatWrapper{deps: deps}, nil
}

// Run implements Wrapper.
func (w *FormatWrapper) Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult {
	result := runCommand(ctx, w.deps, desc, desc.Name, desc.Args, files, core.SeverityWarning, true)
	if result.Status != core.StatusFailure || result.ReasonCode != core.CodeExecution {
		return result
	}

	// Formatters commonly report unformatted files as bare paths, one per
	// line, with a nonzero exit. That is a formatting gap, not a failure.
	findings := pathFindings(result.Errors)
	if len(findings) > 0 {
		result.Success = true
		result.Status = core.StatusWarning
		result.ReasonCode = ""
		result.Findings = findings
		result.Errors = nil
	}
	return result
}

// pathFindings converts bare file-path output lines into findings.
// Returns nil unless every line looks like a path.
func pathFindings(lines []string) []core.Finding {
	var findings []core.Finding
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, " \t") || !strings.ContainsAny(line, "./\\") {
			return nil
		}
		findings = append(findings, core.Finding{
			File:     line,
			Line:     1,
			Severity: core.SeverityWarning,
			Message:  "file is not formatted",
		})
	}
	return findings
}

// TestWrapper runs test suites. Any nonzero exit is a FAILURE; test
// runners do not emit warning-grade outcomes.
type TestWrapper struct {
	deps Deps
}

// NewTestWrapper constructs the test-runner wrapper.
func NewTestWrapper(deps Deps) (Wrapper, error) {
	return &TestWrapper{deps: deps}, nil
}

// Run implements Wrapper.
func (w *TestWrapper) Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult {
	return runCommand(ctx, w.deps, desc, desc.Name, desc.Args, files, core.SeverityError, false)
}

// SecurityWrapper runs security scanners. Findings always grade at least
// WARNING; error-grade findings fail the run.
type SecurityWrapper struct {
	deps Deps
}

// NewSecurityWrapper constructs the security-scanner wrapper.
func NewSecurityWrapper(deps Deps) (Wrapper, error) {
	return &SecurityWrapper{deps: deps}, nil
}

// Run implements Wrapper.
func (w *SecurityWrapper) Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult {
	return runCommand(ctx, w.deps, desc, desc.Name, desc.Args, files, core.SeverityError, true)
}

// PackageManagerWrapper runs package-manager actions (install, audit).
// When the descriptor carries no args it resolves the detected project
// manager and its default action through the pkgmgr service.
type PackageManagerWrapper struct {
	deps Deps
}

// NewPackageManagerWrapper constructs the package-manager wrapper.
func NewPackageManagerWrapper(deps Deps) (Wrapper, error) {
	return &PackageManagerWrapper{deps: deps}, nil
}

// Run implements Wrapper.
func (w *PackageManagerWrapper) Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult {
	if len(desc.Args) > 0 || w.deps.PkgMgr == nil {
		args := desc.Args
		if len(args) == 0 {
			args = []string{w.deps.Classifier.DefaultAction(core.CategoryPackageManager)}
		}
		return runCommand(ctx, w.deps, desc, desc.Name, args, nil, core.SeverityError, false)
	}

	result := core.ToolResult{Tool: desc.Name, Dimension: desc.Dimension}
	res, err := w.deps.PkgMgr.Run(ctx, pkgmgr.ActionInstall)
	result.ExecutionTime = res.Duration.Milliseconds()
	if err != nil {
		result.Status = core.StatusFailure
		result.ReasonCode = core.ErrorCode(err)
		result.Errors = []string{err.Error()}
		return result
	}
	if !res.Success {
		result.Status = core.StatusFailure
		result.ReasonCode = core.CodeExecution
		result.Errors = tailLines(res.Stderr, errorTail)
		return result
	}
	result.Success = true
	result.Status = core.StatusSuccess
	return result
}

// GenericWrapper runs tools with no category-specific handling: exit
// zero is SUCCESS, anything else is FAILURE.
type GenericWrapper struct {
	deps Deps
}

// NewGenericWrapper constructs the fallback wrapper.
func NewGenericWrapper(deps Deps) (Wrapper, error) {
	return &GenericWrapper{deps: deps}, nil
}

// Run implements Wrapper.
func (w *GenericWrapper) Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult {
	return runCommand(ctx, w.deps, desc, desc.Name, desc.Args, files, core.SeverityError, false)
}

// DimensionWrapper handles "validate this dimension" descriptors. In
// stack-auto-detect mode it infers the tool set from the project layout,
// runs the available candidates through their category wrappers, and
// merges the outcomes. A specifically-named tool never reaches the
// stack-detection path.
type DimensionWrapper struct {
	deps     Deps
	detector *StackDetector
}

// NewDimensionWrapper constructs the dimension wrapper.
func NewDimensionWrapper(deps Deps) (Wrapper, error) {
	return &DimensionWrapper{deps: deps, detector: NewStackDetector(deps.Files)}, nil
}

// Run implements Wrapper.
func (w *DimensionWrapper) Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult {
	if desc.Mode != core.ModeStackAutoDetect {
		// The descriptor names a concrete tool; run exactly that.
		return runCommand(ctx, w.deps, desc, desc.Name, desc.Args, files, core.SeverityError, false)
	}

	candidates := w.detector.Candidates(desc.Dimension)
	if len(candidates) == 0 {
		return skippedResult(desc, core.CodeConfiguration,
			fmt.Sprintf("no known stack provides %s tools in this project", desc.Dimension))
	}

	var runnable []stackTool
	for _, c := range candidates {
		if w.deps.Detection.IsAvailable(ctx, c.name) {
			runnable = append(runnable, c)
		}
	}
	if len(runnable) == 0 {
		return skippedResult(desc, core.CodeEnvironment,
			fmt.Sprintf("no %s tool for the detected stacks is installed", desc.Dimension))
	}

	merged := core.ToolResult{
		Tool:      desc.Name,
		Dimension: desc.Dimension,
		Success:   true,
		Status:    core.StatusSuccess,
	}
	for _, c := range runnable {
		sub := core.Descriptor{
			Name:      c.name,
			Dimension: desc.Dimension,
			Scope:     desc.Scope,
			Args:      c.args,
			Timeout:   desc.Timeout,
			Mode:      core.ModeSpecificTool,
		}
		wrapper, err := w.deps.Factory.WrapperFor(sub)
		if err != nil {
			merged.Success = false
			merged.Status = core.StatusFailure
			merged.ReasonCode = core.CodeIntegration
			merged.Errors = append(merged.Errors, err.Error())
			continue
		}
		res := wrapper.Run(ctx, sub, files)
		merged.ExecutionTime += res.ExecutionTime
		merged.Findings = append(merged.Findings, res.Findings...)
		for _, e := range res.Errors {
			merged.Errors = append(merged.Errors, c.name+": "+e)
		}
		if !res.Success {
			merged.Success = false
		}
		merged.Status = worseStatus(merged.Status, res.Status)
		if res.Status == core.StatusFailure && merged.ReasonCode == "" {
			merged.ReasonCode = res.ReasonCode
		}
	}
	return merged
}

// worseStatus returns the more severe of two statuses. SKIPPED for one
// sub-tool does not degrade a dimension whose other tools ran.
func worseStatus(a, b core.Status) core.Status {
	rank := map[core.Status]int{
		core.StatusSkipped: 0,
		core.StatusSuccess: 1,
		core.StatusWarning: 2,
		core.StatusFailure: 3,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
