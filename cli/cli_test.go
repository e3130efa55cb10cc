package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/report"
)

func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToolsRegisterListUnregister(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "tools.json")

	out, err := executeCmd(t, NewToolsCmd(),
		"register", "ruff",
		"--store-path", storePath,
		"--dimension", "lint",
		"--arg", "check",
		"--critical")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out, "Registered tool: ruff") {
		t.Errorf("unexpected register output: %q", out)
	}

	out, err = executeCmd(t, NewToolsCmd(), "list", "--store-path", storePath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "ruff") || !strings.Contains(out, "lint") {
		t.Errorf("expected ruff in list output, got %q", out)
	}

	out, err = executeCmd(t, NewToolsCmd(), "inspect", "ruff", "--store-path", storePath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, `"dimension": "lint"`) {
		t.Errorf("expected JSON definition, got %q", out)
	}

	if _, err = executeCmd(t, NewToolsCmd(), "unregister", "ruff", "--store-path", storePath); err != nil {
		t.Fatalf("unregister: %v", err)
	}

	out, err = executeCmd(t, NewToolsCmd(), "list", "--store-path", storePath)
	if err != nil {
		t.Fatalf("list after unregister: %v", err)
	}
	if !strings.Contains(out, "No tool definitions registered") {
		t.Errorf("expected empty list, got %q", out)
	}
}

func TestToolsRegisterRejectsUnknownDimension(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "tools.json")

	_, err := executeCmd(t, NewToolsCmd(),
		"register", "mystery",
		"--store-path", storePath,
		"--dimension", "vibes")
	if err == nil {
		t.Fatal("expected error for unknown dimension")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitFailure {
		t.Errorf("expected exit code %d, got %v", exitFailure, err)
	}
}

func TestToolsUnregisterMissing(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "tools.json")

	_, err := executeCmd(t, NewToolsCmd(), "unregister", "ghost", "--store-path", storePath)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name     string
		rep      report.Report
		err      error
		wantCode int
	}{
		{
			name:     "pass",
			rep:      report.Report{Classification: core.ClassificationPass},
			wantCode: exitSuccess,
		},
		{
			name:     "pass with warnings",
			rep:      report.Report{Classification: core.ClassificationPassWarnings},
			wantCode: exitSuccess,
		},
		{
			name:     "fail",
			rep:      report.Report{Classification: core.ClassificationFail},
			wantCode: exitFailure,
		},
		{
			name:     "nothing to do",
			err:      core.NewError(core.CodeNothingToDo, "no tools mapped", true, core.ErrNothingToDo),
			wantCode: exitNothingToDo,
		},
		{
			name:     "environment not ready",
			err:      core.NewError(core.CodeEnvironmentNotReady, "all tools missing", true, core.ErrEnvironmentNotReady),
			wantCode: exitEnvNotReady,
		},
		{
			name:     "timeout",
			err:      core.NewError(core.CodeTimeout, "run timed out", false, nil),
			wantCode: exitTimeout,
		},
		{
			name:     "other error",
			err:      errors.New("boom"),
			wantCode: exitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyOutcome(tt.rep, tt.err)
			if tt.wantCode == exitSuccess {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			var exitErr *ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("expected ExitError, got %v", err)
			}
			if exitErr.Code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, exitErr.Code)
			}
		})
	}
}

func TestRenderReport(t *testing.T) {
	rep := report.New("run-1", time.Now(), 1,
		[]core.ToolResult{
			{
				Tool:      "eslint",
				Dimension: core.DimensionLint,
				Success:   true,
				Status:    core.StatusWarning,
				Findings: []core.Finding{
					{File: "src/app.ts", Line: 3, Severity: core.SeverityWarning, Message: "unused variable"},
				},
			},
			{
				Tool:      "pytest",
				Dimension: core.DimensionTest,
				Status:    core.StatusFailure,
				Errors:    []string{"2 tests failed"},
			},
		})

	var buf bytes.Buffer
	renderReport(&buf, rep)
	out := buf.String()

	for _, want := range []string{
		"eslint", "pytest",
		"2 checks: 0 passed, 1 warnings, 1 failed, 0 skipped",
		"Classification: fail",
		"src/app.ts:3 unused variable",
		"error: 2 tests failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestResolveConfigMissingFile(t *testing.T) {
	cmd := NewRunCmd()
	if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(cmd); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestBuildRunOptions(t *testing.T) {
	cmd := NewRunCmd()
	for flag, value := range map[string]string{
		"mode":    "fast",
		"scope":   "frontend",
		"timeout": "90s",
	} {
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := cmd.Flags().Set("dimension", "lint"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("changed-file", "src/app.ts"); err != nil {
		t.Fatal(err)
	}

	opts := buildRunOptions(cmd)
	if opts.Mode != "fast" || opts.Scope != "frontend" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.RunTimeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", opts.RunTimeout)
	}
	if len(opts.Dimensions) != 1 || opts.Dimensions[0] != "lint" {
		t.Errorf("unexpected dimensions: %v", opts.Dimensions)
	}
	if len(opts.ChangedFiles) != 1 || opts.ChangedFiles[0] != "src/app.ts" {
		t.Errorf("unexpected changed files: %v", opts.ChangedFiles)
	}
}
