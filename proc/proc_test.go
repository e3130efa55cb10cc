package proc

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gate-labs/qualgate/core"
)

func skipUnlessUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunner_Execute_Success(t *testing.T) {
	skipUnlessUnix(t)
	r := NewRunner(RunnerConfig{})

	res, err := r.Execute(context.Background(), Request{
		Command: "echo",
		Args:    []string{"hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
	if res.Batches != 1 {
		t.Errorf("Batches = %d, want 1", res.Batches)
	}
}

func TestRunner_Execute_NonZeroExitIsNotAnError(t *testing.T) {
	skipUnlessUnix(t)
	r := NewRunner(RunnerConfig{})

	res, err := r.Execute(context.Background(), Request{
		Command: "sh",
		Args:    []string{"-c", "echo broken >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected Success=false for nonzero exit")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "broken") {
		t.Errorf("Stderr = %q, want it to contain %q", res.Stderr, "broken")
	}
}

func TestRunner_Execute_MissingCommand(t *testing.T) {
	r := NewRunner(RunnerConfig{})

	_, err := r.Execute(context.Background(), Request{Command: "   "})
	if core.ErrorCode(err) != core.CodeIntegration {
		t.Errorf("ErrorCode = %q, want %q", core.ErrorCode(err), core.CodeIntegration)
	}
}

func TestRunner_Execute_SpawnFailure(t *testing.T) {
	r := NewRunner(RunnerConfig{})

	_, err := r.Execute(context.Background(), Request{
		Command: "definitely-not-a-real-binary-qualgate",
	})
	if err == nil {
		t.Fatal("expected spawn error")
	}
	if core.ErrorCode(err) != core.CodeEnvironment {
		t.Errorf("ErrorCode = %q, want %q", core.ErrorCode(err), core.CodeEnvironment)
	}
}

func TestRunner_Execute_TimeoutKillsProcess(t *testing.T) {
	skipUnlessUnix(t)
	r := NewRunner(RunnerConfig{})

	start := time.Now()
	res, err := r.Execute(context.Background(), Request{
		Command: "sleep",
		Args:    []string{"30"},
		Timeout: 100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error")
	}
	if core.ErrorCode(err) != core.CodeTimeout {
		t.Errorf("ErrorCode = %q, want %q", core.ErrorCode(err), core.CodeTimeout)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut=true")
	}
	if elapsed > 10*time.Second {
		t.Errorf("process not killed promptly, took %v", elapsed)
	}
}

func TestRunner_SplitBatches(t *testing.T) {
	files := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		files = append(files, strings.Repeat("f", 100))
	}

	tests := []struct {
		name        string
		maxLen      int
		batchSize   int
		files       []string
		wantBatches int
	}{
		{"no files", 8000, 50, nil, 1},
		{"fits in one command", 1 << 20, 50, files, 1},
		{"splits at ceil(n/size)", 8000, 50, files, 3}, // ceil(120/50)
		{"exact multiple", 8000, 60, files, 2},
		{"single-file batches", 8000, 1, files[:4], 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(RunnerConfig{MaxCommandLen: tt.maxLen, BatchSize: tt.batchSize})
			got := r.splitBatches(Request{Command: "lint", Files: tt.files})
			if len(got) != tt.wantBatches {
				t.Errorf("batches = %d, want %d", len(got), tt.wantBatches)
			}
			total := 0
			for _, b := range got {
				total += len(b)
			}
			if total != len(tt.files) {
				t.Errorf("batched file count = %d, want %d", total, len(tt.files))
			}
		})
	}
}

func TestRunner_Execute_BatchedMergesOutputAndAndsSuccess(t *testing.T) {
	skipUnlessUnix(t)
	// Each batch echoes its file arguments; three batches of one file each.
	r := NewRunner(RunnerConfig{MaxCommandLen: 10, BatchSize: 1})

	res, err := r.Execute(context.Background(), Request{
		Command: "echo",
		Files:   []string{"aa.go", "bb.go", "cc.go"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Batches != 3 {
		t.Errorf("Batches = %d, want 3", res.Batches)
	}
	if !res.Success {
		t.Error("all batches succeeded, want Success=true")
	}
	for _, f := range []string{"aa.go", "bb.go", "cc.go"} {
		if !strings.Contains(res.Stdout, f) {
			t.Errorf("merged stdout missing %q: %q", f, res.Stdout)
		}
	}
}

func TestRunner_Execute_BatchFailurePropagates(t *testing.T) {
	skipUnlessUnix(t)
	// "test -f" fails for missing files; one of three batches fails.
	dir := t.TempDir()
	existing := dir + "/a"
	if err := NewOSFileService("").Write(existing, []byte("x")); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(RunnerConfig{MaxCommandLen: 10, BatchSize: 1})
	res, err := r.Execute(context.Background(), Request{
		Command: "test",
		Args:    []string{"-f"},
		Files:   []string{existing, dir + "/missing", existing},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("one failed batch must make the merged result unsuccessful")
	}
	if res.Batches != 3 {
		t.Errorf("Batches = %d, want 3", res.Batches)
	}
}

func TestBinaryPath(t *testing.T) {
	skipUnlessUnix(t)
	if _, err := BinaryPath("sh"); err != nil {
		t.Errorf("sh should resolve: %v", err)
	}
	if _, err := BinaryPath("definitely-not-a-real-binary-qualgate"); err == nil {
		t.Error("expected error for missing binary")
	}
}
