// Package proc provides the process-execution service the engine injects
// into tool wrappers. It wraps os/exec with context-aware timeouts,
// force-kill on expiry, and command-length-safe batching of file
// arguments, so wrappers never deal with platform argument limits.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/gate-labs/qualgate/core"
)

const (
	// defaultMaxCommandLen is the safe combined command-line length.
	// Kept well under the tightest common platform limit (~8 KB).
	defaultMaxCommandLen = 8000

	// defaultBatchSize is the number of file arguments per batched
	// invocation when the combined command would exceed the limit.
	defaultBatchSize = 50

	// killGrace is how long a process gets between SIGINT-equivalent
	// cancellation and a hard kill.
	killGrace = 2 * time.Second
)

// Request describes one logical tool invocation. Files are appended after
// Args and are the only part the runner may split into batches.
type Request struct {
	Command string
	Args    []string
	Files   []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Result is the normalized outcome of a Request. For batched requests it
// is the merge across all batches: stdout/stderr concatenated in batch
// order and Success AND-ed.
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
	Batches  int
}

// Executor runs tool subprocesses. The engine injects it into wrappers
// and tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	MaxCommandLen int
	BatchSize     int
	Logger        *slog.Logger
}

// Runner is the os/exec-backed Executor.
type Runner struct {
	maxCommandLen int
	batchSize     int
	logger        *slog.Logger
}

// NewRunner creates a Runner, applying defaults for zero fields.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.MaxCommandLen <= 0 {
		cfg.MaxCommandLen = defaultMaxCommandLen
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		maxCommandLen: cfg.MaxCommandLen,
		batchSize:     cfg.BatchSize,
		logger:        cfg.Logger,
	}
}

// Execute runs the request, batching file arguments when the combined
// command line would exceed the safe length. Nonzero exits are not
// errors; the Result carries the exit code. Errors are reserved for
// spawn failures and timeouts.
func (r *Runner) Execute(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Command) == "" {
		return Result{}, core.NewError(core.CodeIntegration, "proc: command is required", true, nil)
	}

	batches := r.splitBatches(req)
	merged := Result{Success: true, Batches: len(batches)}
	var stdout, stderr strings.Builder

	for i, files := range batches {
		res, err := r.executeOnce(ctx, req, files)
		merged.Duration += res.Duration
		stdout.WriteString(res.Stdout)
		stderr.WriteString(res.Stderr)
		if err != nil {
			merged.Success = false
			merged.TimedOut = res.TimedOut
			merged.ExitCode = res.ExitCode
			merged.Stdout = stdout.String()
			merged.Stderr = stderr.String()
			return merged, err
		}
		if !res.Success {
			merged.Success = false
			merged.ExitCode = res.ExitCode
		}
		if len(batches) > 1 {
			r.logger.Debug("batch completed",
				"command", req.Command,
				"batch", i+1,
				"batches", len(batches),
				"files", len(files),
				"exit_code", res.ExitCode)
		}
	}

	merged.Stdout = stdout.String()
	merged.Stderr = stderr.String()
	return merged, nil
}

// splitBatches returns the file-argument batches for a request. A request
// whose combined command line fits the limit yields one batch, even when
// it carries more files than the batch size.
func (r *Runner) splitBatches(req Request) [][]string {
	if len(req.Files) == 0 {
		return [][]string{nil}
	}
	if commandLen(req.Command, req.Args, req.Files) <= r.maxCommandLen {
		return [][]string{req.Files}
	}

	var batches [][]string
	for start := 0; start < len(req.Files); start += r.batchSize {
		end := start + r.batchSize
		if end > len(req.Files) {
			end = len(req.Files)
		}
		batches = append(batches, req.Files[start:end])
	}
	return batches
}

func commandLen(command string, args, files []string) int {
	n := len(command)
	for _, a := range args {
		n += 1 + len(a)
	}
	for _, f := range files {
		n += 1 + len(f)
	}
	return n
}

func (r *Runner) executeOnce(ctx context.Context, req Request, files []string) (Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	argv := make([]string, 0, len(req.Args)+len(files))
	argv = append(argv, req.Args...)
	argv = append(argv, files...)

	// #nosec G204 -- command and args come from validated tool descriptors.
	cmd := exec.CommandContext(ctx, req.Command, argv...)
	cmd.Dir = req.Dir
	if req.Env != nil {
		cmd.Env = req.Env
	}
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Success:  err == nil,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		return res, core.NewError(core.CodeTimeout,
			fmt.Sprintf("proc: %s exceeded timeout %v", req.Command, req.Timeout), false, err)
	}
	if ctx.Err() == context.Canceled {
		return res, core.NewError(core.CodeExecution,
			fmt.Sprintf("proc: %s canceled", req.Command), false, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Ran to completion with a nonzero exit. Not an error here; the
		// wrapper decides what the exit code means for its tool.
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return res, core.NewError(core.CodeEnvironment,
		fmt.Sprintf("proc: spawning %s failed", req.Command), false, err)
}

// BinaryPath resolves a binary on the system PATH.
func BinaryPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary %q not found in PATH: %w", name, err)
	}
	return path, nil
}
