// Package tool implements the tool-facing subsystems of the engine:
// availability detection, classification, dimension mapping, validation,
// and the wrapper factory that adapts heterogeneous external tools into
// one result shape.
package tool

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/gate-labs/qualgate/core"
)

// DetectionServiceConfig configures the shared detection service.
type DetectionServiceConfig struct {
	// Strategies are tried in order until one finds the tool. Defaults to
	// virtualenv-style local directories followed by the system PATH.
	Strategies []ProbeStrategy

	// Critical names the tools whose absence should be flagged as critical
	// in their detection results.
	Critical map[string]bool

	Logger *slog.Logger
}

// DetectionService probes tool availability exactly once per run and
// serves every consumer from one cache, so no two subsystems can reach
// divergent conclusions about the same tool.
type DetectionService struct {
	strategies []ProbeStrategy
	critical   map[string]bool
	logger     *slog.Logger

	mu       sync.Mutex
	cache    map[string]core.DetectionResult
	inflight map[string]chan struct{}
}

// NewDetectionService creates the shared detection service.
func NewDetectionService(cfg DetectionServiceConfig) *DetectionService {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DetectionService{
		strategies: cfg.Strategies,
		critical:   cfg.Critical,
		logger:     cfg.Logger,
		cache:      make(map[string]core.DetectionResult),
		inflight:   make(map[string]chan struct{}),
	}
}

// DetectAll populates the cache for the given tool names. It is
// idempotent: names already in the cache are never re-probed. Per-tool
// probe failures are isolated; they record the tool as unavailable and
// never abort probing of the others.
func (s *DetectionService) DetectAll(ctx context.Context, required, optional []string) map[string]core.DetectionResult {
	names := make([]string, 0, len(required)+len(optional))
	names = append(names, required...)
	names = append(names, optional...)

	for _, name := range names {
		if name == "" {
			continue
		}
		s.probe(ctx, name)
	}
	return s.Snapshot()
}

// IsAvailable reads the cache, probing lazily on a miss so an unknown
// tool is never silently reported absent.
func (s *DetectionService) IsAvailable(ctx context.Context, name string) bool {
	return s.probe(ctx, name).Available
}

// Result returns the detection result for a name, probing on a miss.
// Cached answers come back with Source set to the cache marker.
func (s *DetectionService) Result(ctx context.Context, name string) core.DetectionResult {
	s.mu.Lock()
	if res, ok := s.cache[name]; ok {
		s.mu.Unlock()
		res.Source = core.SourceCache
		return res
	}
	s.mu.Unlock()
	return s.probe(ctx, name)
}

// Snapshot returns a copy of the cache keyed by tool name.
func (s *DetectionService) Snapshot() map[string]core.DetectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]core.DetectionResult, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}

// Reset clears the cache so the next probe re-detects. Intended for
// tests and forced re-detection.
func (s *DetectionService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]core.DetectionResult)
}

// probe returns the cached result for name, running at most one
// underlying probe even when called concurrently for the same name.
func (s *DetectionService) probe(ctx context.Context, name string) core.DetectionResult {
	for {
		s.mu.Lock()
		if res, ok := s.cache[name]; ok {
			s.mu.Unlock()
			return res
		}
		if wait, ok := s.inflight[name]; ok {
			s.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return core.DetectionResult{ToolName: name, Available: false, Source: core.SourceSystem}
			}
			continue
		}
		done := make(chan struct{})
		s.inflight[name] = done
		s.mu.Unlock()

		res := s.runStrategies(ctx, name)

		s.mu.Lock()
		s.cache[name] = res
		delete(s.inflight, name)
		s.mu.Unlock()
		close(done)
		return res
	}
}

// runStrategies tries each probe strategy in order. Each miss is logged;
// a tool found by no strategy is recorded unavailable.
func (s *DetectionService) runStrategies(ctx context.Context, name string) core.DetectionResult {
	for _, strat := range s.strategies {
		res, err := strat.Probe(ctx, name)
		if err != nil {
			s.logger.Debug("probe strategy missed",
				"tool", name, "strategy", strat.Name(), "error", err)
			continue
		}
		res.ToolName = name
		res.Critical = s.critical[name]
		s.logger.Debug("tool detected",
			"tool", name, "strategy", strat.Name(), "version", res.Version)
		return res
	}

	s.logger.Warn("tool not available", "tool", name)
	return core.DetectionResult{
		ToolName:  name,
		Available: false,
		Critical:  s.critical[name],
		Source:    core.SourceSystem,
	}
}

// SortedNames returns the cached tool names in sorted order, handy for
// deterministic reporting.
func (s *DetectionService) SortedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.cache))
	for name := range s.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
