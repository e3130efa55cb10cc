// Package pkgmgr identifies which package manager governs a project and
// builds validated, cacheable commands for it.
package pkgmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/proc"
)

// Kind identifies a supported package manager.
type Kind string

const (
	KindNPM    Kind = "npm"
	KindYarn   Kind = "yarn"
	KindPNPM   Kind = "pnpm"
	KindPoetry Kind = "poetry"
	KindPip    Kind = "pip"
	KindGo     Kind = "go"
	KindCargo  Kind = "cargo"
)

// Action is a package-manager operation the engine may request.
type Action string

const (
	ActionInstall Action = "install"
	ActionRun     Action = "run"
	ActionTest    Action = "test"
	ActionAudit   Action = "audit"
)

// Manager describes a detected package manager.
type Manager struct {
	Kind    Kind
	Binary  string
	Marker  string // the file that identified it
}

// marker files checked in priority order. More specific lockfiles win
// over generic manifests so yarn/pnpm projects are not misread as npm.
var markers = []struct {
	file string
	kind Kind
}{
	{"pnpm-lock.yaml", KindPNPM},
	{"yarn.lock", KindYarn},
	{"package-lock.json", KindNPM},
	{"poetry.lock", KindPoetry},
	{"Cargo.toml", KindCargo},
	{"go.mod", KindGo},
	{"package.json", KindNPM},
	{"requirements.txt", KindPip},
	{"pyproject.toml", KindPoetry},
}

// ErrNotDetected is returned when no marker file matches.
var ErrNotDetected = fmt.Errorf("pkgmgr: no package manager marker found")

// Detector probes a project directory once and caches the answer.
type Detector struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	detected *Manager
	probed   bool
	probeErr error
}

// NewDetector creates a detector for the given project directory.
func NewDetector(dir string, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{dir: dir, logger: logger}
}

// Detect returns the project's package manager, probing the filesystem
// on first call only.
func (d *Detector) Detect() (Manager, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.probed {
		if d.probeErr != nil {
			return Manager{}, d.probeErr
		}
		return *d.detected, nil
	}
	d.probed = true

	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(d.dir, m.file)); err == nil {
			mgr := Manager{Kind: m.kind, Binary: binaryFor(m.kind), Marker: m.file}
			d.detected = &mgr
			d.logger.Debug("package manager detected",
				"kind", string(m.kind), "marker", m.file)
			return mgr, nil
		}
	}

	d.probeErr = ErrNotDetected
	return Manager{}, d.probeErr
}

// Reset clears the cached detection so the next Detect re-probes.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detected = nil
	d.probed = false
	d.probeErr = nil
}

func binaryFor(kind Kind) string {
	switch kind {
	case KindPip:
		return "pip"
	default:
		return string(kind)
	}
}

// Command builds the validated argument list for an action. Unsupported
// action/kind pairs return an integration error rather than a guessed
// command line.
func (m Manager) Command(action Action, extra ...string) ([]string, error) {
	base, ok := commandTable[m.Kind][action]
	if !ok {
		return nil, core.NewError(core.CodeIntegration,
			fmt.Sprintf("pkgmgr: %s does not support action %q", m.Kind, action), true, nil)
	}
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out, nil
}

var commandTable = map[Kind]map[Action][]string{
	KindNPM: {
		ActionInstall: {"install"},
		ActionRun:     {"run"},
		ActionTest:    {"test"},
		ActionAudit:   {"audit"},
	},
	KindYarn: {
		ActionInstall: {"install"},
		ActionRun:     {"run"},
		ActionTest:    {"test"},
		ActionAudit:   {"audit"},
	},
	KindPNPM: {
		ActionInstall: {"install"},
		ActionRun:     {"run"},
		ActionTest:    {"test"},
		ActionAudit:   {"audit"},
	},
	KindPoetry: {
		ActionInstall: {"install"},
		ActionRun:     {"run"},
		ActionTest:    {"run", "pytest"},
	},
	KindPip: {
		ActionInstall: {"install", "-r", "requirements.txt"},
	},
	KindGo: {
		ActionInstall: {"mod", "download"},
		ActionTest:    {"test", "./..."},
	},
	KindCargo: {
		ActionInstall: {"fetch"},
		ActionTest:    {"test"},
		ActionAudit:   {"audit"},
	},
}

// Executor runs package-manager actions through the shared process
// execution service.
type Executor struct {
	detector *Detector
	exec     proc.Executor
}

// NewExecutor creates a package-manager executor.
func NewExecutor(detector *Detector, exec proc.Executor) *Executor {
	return &Executor{detector: detector, exec: exec}
}

// Run detects the package manager and executes the action in the
// project directory.
func (e *Executor) Run(ctx context.Context, action Action, extra ...string) (proc.Result, error) {
	mgr, err := e.detector.Detect()
	if err != nil {
		return proc.Result{}, core.NewError(core.CodeEnvironment, "pkgmgr: detection failed", false, err)
	}
	args, err := mgr.Command(action, extra...)
	if err != nil {
		return proc.Result{}, err
	}
	return e.exec.Execute(ctx, proc.Request{
		Command: mgr.Binary,
		Args:    args,
		Dir:     e.detector.dir,
	})
}
