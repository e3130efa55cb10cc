package tool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gate-labs/qualgate/core"
)

// countingStrategy reports availability from a fixed table and counts
// probes per tool.
type countingStrategy struct {
	available map[string]bool
	probes    map[string]*int32
	mu        sync.Mutex
}

func newCountingStrategy(available map[string]bool) *countingStrategy {
	return &countingStrategy{
		available: available,
		probes:    make(map[string]*int32),
	}
}

func (s *countingStrategy) Name() string { return "counting" }

func (s *countingStrategy) Probe(ctx context.Context, toolName string) (core.DetectionResult, error) {
	s.mu.Lock()
	counter, ok := s.probes[toolName]
	if !ok {
		counter = new(int32)
		s.probes[toolName] = counter
	}
	s.mu.Unlock()
	atomic.AddInt32(counter, 1)

	if !s.available[toolName] {
		return core.DetectionResult{}, errors.New("not found")
	}
	return core.DetectionResult{Available: true, Version: "1.0.0", Source: core.SourceSystem}, nil
}

func (s *countingStrategy) count(toolName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if counter, ok := s.probes[toolName]; ok {
		return int(atomic.LoadInt32(counter))
	}
	return 0
}

func newTestDetection(available map[string]bool) (*DetectionService, *countingStrategy) {
	strat := newCountingStrategy(available)
	svc := NewDetectionService(DetectionServiceConfig{
		Strategies: []ProbeStrategy{strat},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return svc, strat
}

func TestDetectionServiceProbesOnce(t *testing.T) {
	svc, strat := newTestDetection(map[string]bool{"eslint": true})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !svc.IsAvailable(ctx, "eslint") {
			t.Fatalf("IsAvailable(eslint) = false, want true")
		}
	}
	svc.DetectAll(ctx, []string{"eslint"}, []string{"eslint"})

	if got := strat.count("eslint"); got != 1 {
		t.Errorf("probe count = %d, want 1", got)
	}
}

func TestDetectionServiceConcurrentDedup(t *testing.T) {
	svc, strat := newTestDetection(map[string]bool{"ruff": true})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.IsAvailable(ctx, "ruff")
		}()
	}
	wg.Wait()

	if got := strat.count("ruff"); got != 1 {
		t.Errorf("probe count under concurrency = %d, want 1", got)
	}
}

func TestDetectionServiceUnavailableCached(t *testing.T) {
	svc, strat := newTestDetection(map[string]bool{})
	ctx := context.Background()

	if svc.IsAvailable(ctx, "missing-tool") {
		t.Fatal("IsAvailable(missing-tool) = true, want false")
	}
	if svc.IsAvailable(ctx, "missing-tool") {
		t.Fatal("second IsAvailable(missing-tool) = true, want false")
	}
	if got := strat.count("missing-tool"); got != 1 {
		t.Errorf("probe count = %d, want 1: negative results must be cached too", got)
	}
}

func TestDetectionServiceResultMarksCacheHits(t *testing.T) {
	svc, _ := newTestDetection(map[string]bool{"pytest": true})
	ctx := context.Background()

	first := svc.Result(ctx, "pytest")
	if first.Source != core.SourceSystem {
		t.Fatalf("first probe source = %q, want %q", first.Source, core.SourceSystem)
	}
	second := svc.Result(ctx, "pytest")
	if second.Source != core.SourceCache {
		t.Errorf("cached result source = %q, want %q", second.Source, core.SourceCache)
	}
	if !second.Available || second.Version != "1.0.0" {
		t.Errorf("cached result lost payload: %+v", second)
	}
}

func TestDetectionServiceFailureIsolation(t *testing.T) {
	svc, _ := newTestDetection(map[string]bool{"good": true})
	ctx := context.Background()

	results := svc.DetectAll(ctx, []string{"good", "bad"}, nil)
	if !results["good"].Available {
		t.Error("good tool not detected after sibling probe failure")
	}
	if results["bad"].Available {
		t.Error("bad tool reported available")
	}
}

func TestDetectionServiceReset(t *testing.T) {
	svc, strat := newTestDetection(map[string]bool{"go": true})
	ctx := context.Background()

	svc.IsAvailable(ctx, "go")
	svc.Reset()
	svc.IsAvailable(ctx, "go")

	if got := strat.count("go"); got != 2 {
		t.Errorf("probe count after reset = %d, want 2", got)
	}
}

func TestDetectionServiceCriticalFlag(t *testing.T) {
	strat := newCountingStrategy(map[string]bool{})
	svc := NewDetectionService(DetectionServiceConfig{
		Strategies: []ProbeStrategy{strat},
		Critical:   map[string]bool{"tsc": true},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	res := svc.Result(context.Background(), "tsc")
	if !res.Critical {
		t.Error("critical tool not flagged in detection result")
	}
}

func TestDetectionServiceSortedNames(t *testing.T) {
	svc, _ := newTestDetection(map[string]bool{"b": true, "a": true, "c": true})
	ctx := context.Background()
	svc.DetectAll(ctx, []string{"c", "a", "b"}, nil)

	names := svc.SortedNames()
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("SortedNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("SortedNames() = %v, want %v", names, want)
		}
	}
}
