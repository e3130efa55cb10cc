package tool

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/proc"
)

// probeTimeout bounds a single version probe so a hung binary cannot
// stall detection.
const probeTimeout = 10 * time.Second

// ProbeStrategy is one way of locating a tool. The detection service
// tries strategies in order; removing the fallback chain has previously
// broken detection of correctly-installed system tools, so the ordered
// list is part of the contract.
type ProbeStrategy interface {
	Name() string
	// Probe returns the detection result for the tool, or an error when
	// this strategy cannot find it and the next one should be tried.
	Probe(ctx context.Context, toolName string) (core.DetectionResult, error)
}

// DefaultStrategies returns the standard fallback chain for a project
// directory: isolated-environment binaries first, then the system PATH.
func DefaultStrategies(projectDir string) []ProbeStrategy {
	runner := proc.NewRunner(proc.RunnerConfig{})
	return []ProbeStrategy{
		NewVirtualenvStrategy(projectDir, runner),
		NewSystemPathStrategy(runner),
	}
}

// SystemPathStrategy finds tools on the system PATH and probes their
// version with a best-effort "--version" call.
type SystemPathStrategy struct {
	exec proc.Executor
}

// NewSystemPathStrategy creates the PATH-based strategy.
func NewSystemPathStrategy(executor proc.Executor) *SystemPathStrategy {
	return &SystemPathStrategy{exec: executor}
}

// Name identifies the strategy in logs.
func (s *SystemPathStrategy) Name() string { return "system-path" }

// Probe looks the tool up on PATH. A version probe failure does not fail
// detection; presence on PATH is the availability signal.
func (s *SystemPathStrategy) Probe(ctx context.Context, toolName string) (core.DetectionResult, error) {
	if _, err := exec.LookPath(toolName); err != nil {
		return core.DetectionResult{}, err
	}
	return core.DetectionResult{
		Available: true,
		Version:   probeVersion(ctx, s.exec, toolName),
		Source:    core.SourceSystem,
	}, nil
}

// virtualenvBinDirs are the project-local directories where isolated
// environments place executables.
var virtualenvBinDirs = []string{
	filepath.Join("node_modules", ".bin"),
	filepath.Join(".venv", "bin"),
	filepath.Join("venv", "bin"),
}

// VirtualenvStrategy finds tools installed in project-local isolated
// environments, which must shadow same-named system installs.
type VirtualenvStrategy struct {
	dir  string
	exec proc.Executor
}

// NewVirtualenvStrategy creates the isolated-environment strategy for a
// project directory.
func NewVirtualenvStrategy(dir string, executor proc.Executor) *VirtualenvStrategy {
	return &VirtualenvStrategy{dir: dir, exec: executor}
}

// Name identifies the strategy in logs.
func (s *VirtualenvStrategy) Name() string { return "virtualenv" }

// Probe checks the known isolated-environment bin directories.
func (s *VirtualenvStrategy) Probe(ctx context.Context, toolName string) (core.DetectionResult, error) {
	for _, bin := range virtualenvBinDirs {
		candidate := filepath.Join(s.dir, bin, toolName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return core.DetectionResult{
			Available: true,
			Version:   probeVersion(ctx, s.exec, candidate),
			Source:    core.SourceVirtualenv,
		}, nil
	}
	return core.DetectionResult{}, os.ErrNotExist
}

// probeVersion runs "<tool> --version" and returns the first output line.
// Failures yield an empty version, never an error: availability was
// already established by the caller.
func probeVersion(ctx context.Context, executor proc.Executor, command string) string {
	res, err := executor.Execute(ctx, proc.Request{
		Command: command,
		Args:    []string{"--version"},
		Timeout: probeTimeout,
	})
	if err != nil || !res.Success {
		return ""
	}
	line := res.Stdout
	if line == "" {
		line = res.Stderr
	}
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}
