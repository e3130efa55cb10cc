package tool

import (
	"context"
	"log/slog"
	"time"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/pkgmgr"
	"github.com/gate-labs/qualgate/proc"
)

// Deps carries every collaborator a wrapper may need. The factory injects
// it at construction; wrappers take what they use and ignore the rest.
type Deps struct {
	Exec       proc.Executor
	Files      proc.FileService
	Classifier *Classifier
	Detection  *DetectionService
	Factory    *Factory
	PkgMgr     *pkgmgr.Executor
	Dir        string
	Logger     *slog.Logger
}

// Wrapper executes one tool descriptor against a file set and normalizes
// the outcome. Implementations never panic on tool failure; every path
// returns a ToolResult.
type Wrapper interface {
	Run(ctx context.Context, desc core.Descriptor, files []string) core.ToolResult
}

// Provider constructs a wrapper from injected dependencies.
type Provider func(deps Deps) (Wrapper, error)

const errorTail = 20

// runCommand executes the descriptor's command through the injected
// executor and maps the raw process outcome onto a ToolResult. The
// severity argument sets the default grade for parsed findings;
// warnOnFindings downgrades a nonzero exit to WARNING when every parsed
// finding is warning-or-lower.
func runCommand(ctx context.Context, deps Deps, desc core.Descriptor, command string, args, files []string, severity core.Severity, warnOnFindings bool) core.ToolResult {
	start := time.Now()
	res, err := deps.Exec.Execute(ctx, proc.Request{
		Command: command,
		Args:    args,
		Files:   files,
		Dir:     deps.Dir,
		Timeout: desc.Timeout,
	})

	result := core.ToolResult{
		Tool:          desc.Name,
		Dimension:     desc.Dimension,
		ExecutionTime: time.Since(start).Milliseconds(),
	}

	if err != nil {
		result.Status = core.StatusFailure
		result.ReasonCode = core.ErrorCode(err)
		if result.ReasonCode == "" {
			result.ReasonCode = core.CodeExecution
		}
		result.Errors = append(result.Errors, err.Error())
		result.Errors = append(result.Errors, tailLines(res.Stderr, errorTail)...)
		return result
	}

	result.Findings = ParseFindings(res.Stdout+"\n"+res.Stderr, severity)

	if res.Success {
		result.Success = true
		if len(result.Findings) > 0 && OnlyWarnings(result.Findings) {
			result.Status = core.StatusWarning
		} else {
			result.Status = core.StatusSuccess
			result.Findings = nil
		}
		return result
	}

	if warnOnFindings && OnlyWarnings(result.Findings) {
		result.Success = true
		result.Status = core.StatusWarning
		return result
	}

	result.Status = core.StatusFailure
	result.ReasonCode = core.CodeExecution
	if len(result.Findings) == 0 {
		result.Errors = tailLines(res.Stderr, errorTail)
		if len(result.Errors) == 0 {
			result.Errors = tailLines(res.Stdout, errorTail)
		}
	}
	return result
}

// skippedResult builds the uniform SKIPPED outcome used when a tool is
// unavailable or its run window closed before it started.
func skippedResult(desc core.Descriptor, reasonCode, reason string) core.ToolResult {
	return core.ToolResult{
		Tool:       desc.Name,
		Dimension:  desc.Dimension,
		Success:    true,
		Status:     core.StatusSkipped,
		ReasonCode: reasonCode,
		Errors:     []string{reason},
	}
}
