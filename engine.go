// Package qualgate implements a quality-assurance orchestration engine:
// it maps requested quality dimensions onto external tools, validates
// the environment, and executes the tools with bounded concurrency,
// producing one normalized report.
package qualgate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gate-labs/qualgate/config"
	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/pkgmgr"
	"github.com/gate-labs/qualgate/proc"
	"github.com/gate-labs/qualgate/report"
	"github.com/gate-labs/qualgate/scope"
	"github.com/gate-labs/qualgate/tool"
)

// Options controls one run.
type Options struct {
	// Dimensions to run. Empty means the mode preset decides.
	Dimensions []string

	// Scope narrows which project subset the dimensions apply to.
	// Empty means "all".
	Scope string

	// Mode selects a configured preset. Empty with no Dimensions falls
	// back to the "dod" preset.
	Mode string

	// ChangedFiles restricts tools that accept file arguments to the
	// given set, filtered per scope. Empty means whole-project runs.
	ChangedFiles []string

	// RunTimeout bounds the whole run. Tools still pending when it
	// expires are reported SKIPPED. Zero means no run-level bound.
	RunTimeout time.Duration

	// EventHandler receives engine events during the run.
	EventHandler EventHandler
}

// EngineConfig configures an Engine. Zero-valued fields get defaults.
type EngineConfig struct {
	Config *config.Config

	// Dir is the project directory tools run in.
	Dir string

	Logger *slog.Logger

	// Executor runs tool subprocesses. Defaults to the batching runner.
	Executor proc.Executor

	// Files is the project file access service.
	Files proc.FileService

	// Detection is the shared availability service. Supplying one lets
	// callers share a probe cache across engines; omitted, the engine
	// builds its own over the default strategy chain.
	Detection *tool.DetectionService

	// Store optionally supplies persisted tool definitions merged into
	// the configuration at run time.
	Store tool.Store
}

// Engine orchestrates quality tool runs.
type Engine struct {
	cfg       *config.Config
	dir       string
	logger    *slog.Logger
	exec      proc.Executor
	files     proc.FileService
	detection *tool.DetectionService
	factory   *tool.Factory
	validator *tool.Validator
	scopes    *scope.Resolver
	store     tool.Store

	loadDefsOnce sync.Once
	loadDefsErr  error
}

// NewEngine creates an engine, wiring defaults for omitted collaborators.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Executor == nil {
		cfg.Executor = proc.NewRunner(proc.RunnerConfig{Logger: cfg.Logger})
	}
	if cfg.Files == nil {
		cfg.Files = proc.NewOSFileService(cfg.Dir)
	}
	if cfg.Detection == nil {
		critical := map[string]bool{}
		for name, settings := range cfg.Config.Tools {
			if settings.Critical {
				critical[name] = true
			}
		}
		cfg.Detection = tool.NewDetectionService(tool.DetectionServiceConfig{
			Strategies: tool.DefaultStrategies(cfg.Dir),
			Critical:   critical,
			Logger:     cfg.Logger,
		})
	}

	patterns := scope.DefaultPatterns()
	for name, globs := range cfg.Config.Scopes {
		patterns[core.Scope(name)] = globs
	}

	e := &Engine{
		cfg:       cfg.Config,
		dir:       cfg.Dir,
		logger:    cfg.Logger,
		exec:      cfg.Executor,
		files:     cfg.Files,
		detection: cfg.Detection,
		validator: tool.NewValidator(cfg.Detection, cfg.Config, cfg.Logger),
		scopes:    scope.NewResolver(patterns, cfg.Logger),
		store:     cfg.Store,
	}

	pkgExec := pkgmgr.NewExecutor(pkgmgr.NewDetector(cfg.Dir, cfg.Logger), cfg.Executor)
	e.factory = tool.NewFactory(tool.Deps{
		Exec:       cfg.Executor,
		Files:      cfg.Files,
		Classifier: tool.NewClassifier(),
		Detection:  cfg.Detection,
		PkgMgr:     pkgExec,
		Dir:        cfg.Dir,
		Logger:     cfg.Logger,
	})
	return e, nil
}

// Factory exposes the wrapper factory so callers can register custom
// category wrappers before running.
func (e *Engine) Factory() *tool.Factory {
	return e.factory
}

// Detection exposes the shared availability service.
func (e *Engine) Detection() *tool.DetectionService {
	return e.detection
}

// Run executes one quality run: configure, map, validate, plan,
// execute, aggregate, report. The returned report is valid even when
// err is non-nil; a run-level timeout returns the partial report and a
// timeout error.
func (e *Engine) Run(ctx context.Context, opts Options) (report.Report, error) {
	runID := uuid.NewString()
	started := time.Now()

	var seq atomic.Uint64
	emit := func(ev Event) {
		ev.Seq = seq.Add(1)
		if ev.Elapsed == 0 {
			ev.Elapsed = time.Since(started)
		}
		if opts.EventHandler != nil {
			opts.EventHandler(ev)
		}
	}
	phase := func(p Phase) {
		e.logger.Debug("phase changed", "run_id", runID, "phase", string(p))
		emit(NewEvent(EventPhaseChanged, runID).WithPayload("phase", string(p)))
	}
	finish := func(rep report.Report, err error) (report.Report, error) {
		ev := NewEvent(EventRunFinished, runID).
			WithPayload("classification", string(rep.Classification))
		if err != nil {
			ev = ev.WithPayload("error", err.Error())
		}
		emit(ev)
		return rep, err
	}

	emit(NewEvent(EventRunStarted, runID).
		WithPayload("mode", opts.Mode).
		WithPayload("scope", opts.Scope))

	phase(PhaseConfigure)
	if err := e.loadDefinitions(ctx); err != nil {
		return finish(report.New(runID, started, time.Since(started), nil), err)
	}
	dims, scopeName, changedOnly, skipSlow, err := e.resolveRequest(opts)
	if err != nil {
		return finish(report.New(runID, started, time.Since(started), nil), err)
	}

	phase(PhaseMap)
	mapper := tool.NewMapper(e.cfg, e.logger)
	descriptors := mapper.Map(dims, scopeName)
	if skipSlow {
		descriptors = e.dropSlow(descriptors)
	}
	if len(descriptors) == 0 {
		err := core.NewError(core.CodeNothingToDo,
			"no tools mapped for the requested dimensions and scope", true, core.ErrNothingToDo)
		return finish(report.New(runID, started, time.Since(started), nil), err)
	}

	phase(PhaseValidate)
	required, optional := e.partitionByCriticality(descriptors)
	e.detection.DetectAll(ctx, required, optional)
	validation := e.validator.ValidateAndFilterTools(ctx, descriptors)
	emit(NewEvent(EventProbeFinished, runID).
		WithPayload("available", len(validation.Available)).
		WithPayload("unavailable", len(validation.Unavailable)))

	var results []core.ToolResult
	for _, d := range validation.Unavailable {
		res := core.ToolResult{
			Tool:       d.Name,
			Dimension:  d.Dimension,
			Success:    true,
			Status:     core.StatusSkipped,
			ReasonCode: core.CodeEnvironment,
			Errors:     []string{fmt.Sprintf("tool %s is not available", d.Name)},
		}
		results = append(results, res)
		emit(NewEvent(EventToolSkipped, runID).
			WithTool(d.Name, d.Dimension).
			WithPayload("reason", core.CodeEnvironment))
	}
	if len(validation.Available) == 0 {
		err := core.NewError(core.CodeEnvironmentNotReady,
			"none of the mapped tools are available in this environment", true, core.ErrEnvironmentNotReady)
		return finish(report.New(runID, started, time.Since(started), results), err)
	}

	phase(PhasePlan)
	plan := BuildPlan(validation.Available)

	phase(PhaseExecute)
	runCtx := ctx
	if opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
		defer cancel()
	}
	changed := opts.ChangedFiles
	if changedOnly && len(changed) == 0 {
		e.logger.Debug("changed-only mode with no changed files; running whole project")
	}
	results = append(results, e.executePlan(runCtx, runID, plan, changed, emit)...)

	phase(PhaseAggregate)
	phase(PhaseReport)
	rep := report.New(runID, started, time.Since(started), results)

	if runCtx.Err() == context.DeadlineExceeded {
		return finish(rep, core.NewError(core.CodeTimeout,
			fmt.Sprintf("run exceeded timeout %v", opts.RunTimeout), false, runCtx.Err()))
	}
	return finish(rep, nil)
}

// loadDefinitions merges persisted tool definitions into the
// configuration once per engine.
func (e *Engine) loadDefinitions(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	e.loadDefsOnce.Do(func() {
		defs, err := e.store.List(ctx)
		if err != nil {
			e.loadDefsErr = core.NewError(core.CodeIntegration,
				"loading stored tool definitions failed", true, err)
			return
		}
		tool.ApplyDefinitions(e.cfg, defs)
	})
	return e.loadDefsErr
}

// resolveRequest turns run options into the concrete dimension list and
// scope, applying the mode preset.
func (e *Engine) resolveRequest(opts Options) ([]core.Dimension, core.Scope, bool, bool, error) {
	mode := opts.Mode
	if mode == "" && len(opts.Dimensions) == 0 {
		mode = "dod"
	}

	names := opts.Dimensions
	changedOnly := false
	skipSlow := false
	if mode != "" {
		preset, ok := e.cfg.Mode(mode)
		if !ok {
			return nil, "", false, false, core.NewError(core.CodeConfiguration,
				fmt.Sprintf("unknown mode %q", mode), true, nil)
		}
		if len(names) == 0 {
			names = preset.Dimensions
		}
		changedOnly = preset.ChangedOnly
		skipSlow = preset.SkipSlow
	}

	dims := make([]core.Dimension, 0, len(names))
	for _, n := range names {
		dims = append(dims, core.Dimension(n))
	}

	scopeName := core.Scope(opts.Scope)
	if scopeName == "" {
		scopeName = core.ScopeAll
	}
	return dims, scopeName, changedOnly, skipSlow, nil
}

// dropSlow filters out tools marked slow in configuration.
func (e *Engine) dropSlow(descriptors []core.Descriptor) []core.Descriptor {
	out := descriptors[:0]
	for _, d := range descriptors {
		if e.cfg.Tools[d.Name].Slow {
			e.logger.Debug("skipping slow tool", "tool", d.Name)
			continue
		}
		out = append(out, d)
	}
	return out
}

// partitionByCriticality splits descriptor tool names into required and
// optional probe lists. Auto-detect descriptors contribute nothing; the
// dimension wrapper probes its candidates against the same cache.
func (e *Engine) partitionByCriticality(descriptors []core.Descriptor) (required, optional []string) {
	for _, d := range descriptors {
		if d.Mode != core.ModeSpecificTool {
			continue
		}
		if e.cfg.Tools[d.Name].Critical {
			required = append(required, d.Name)
		} else {
			optional = append(optional, d.Name)
		}
	}
	return required, optional
}

// executionUnit is one actual tool invocation. Identical specific tools
// requested by multiple dimensions collapse into a single unit; the
// result fans back out to every requesting dimension.
type executionUnit struct {
	key  string
	desc core.Descriptor
}

func unitKey(d core.Descriptor) string {
	if d.Mode == core.ModeSpecificTool {
		return d.Name
	}
	return d.Key()
}

// executePlan runs the plan's unique units through a bounded worker pool
// and assembles per-dimension results. A unit still pending when the
// context expires is reported SKIPPED with a timeout reason.
func (e *Engine) executePlan(ctx context.Context, runID string, plan ExecutionPlan, changed []string, emit func(Event)) []core.ToolResult {
	var units []executionUnit
	seen := map[string]bool{}
	for _, group := range plan.Groups {
		for _, d := range group.Descriptors {
			key := unitKey(d)
			if seen[key] {
				continue
			}
			seen[key] = true
			units = append(units, executionUnit{key: key, desc: d})
		}
	}

	unitResults := make(map[string]core.ToolResult, len(units))
	var mu sync.Mutex

	sem := make(chan struct{}, e.cfg.EffectiveConcurrency())
	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u executionUnit) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				unitResults[u.key] = e.timeoutSkip(u.desc)
				mu.Unlock()
				emit(NewEvent(EventToolSkipped, runID).
					WithTool(u.desc.Name, u.desc.Dimension).
					WithPayload("reason", core.CodeTimeout))
				return
			}
			if ctx.Err() != nil {
				mu.Lock()
				unitResults[u.key] = e.timeoutSkip(u.desc)
				mu.Unlock()
				emit(NewEvent(EventToolSkipped, runID).
					WithTool(u.desc.Name, u.desc.Dimension).
					WithPayload("reason", core.CodeTimeout))
				return
			}

			emit(NewEvent(EventToolStarted, runID).WithTool(u.desc.Name, u.desc.Dimension))
			res := e.runUnit(ctx, u.desc, changed)
			finished := NewEvent(EventToolFinished, runID).
				WithTool(u.desc.Name, u.desc.Dimension).
				WithElapsed(time.Duration(res.ExecutionTime)*time.Millisecond).
				WithPayload("status", string(res.Status))
			if len(res.Errors) > 0 {
				finished = finished.WithPayload("error", res.Errors[0])
			}
			emit(finished)

			mu.Lock()
			unitResults[u.key] = res
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	var results []core.ToolResult
	for _, group := range plan.Groups {
		for _, d := range group.Descriptors {
			res := unitResults[unitKey(d)]
			res.Tool = d.Name
			res.Dimension = d.Dimension
			results = append(results, res)
		}
	}
	return results
}

// runUnit executes one unit through its wrapper.
func (e *Engine) runUnit(ctx context.Context, desc core.Descriptor, changed []string) core.ToolResult {
	wrapper, err := e.factory.WrapperFor(desc)
	if err != nil {
		return core.ToolResult{
			Tool:       desc.Name,
			Dimension:  desc.Dimension,
			Status:     core.StatusFailure,
			ReasonCode: core.CodeIntegration,
			Errors:     []string{err.Error()},
		}
	}
	var files []string
	if len(changed) > 0 {
		files = e.scopes.Filter(desc.Scope, changed)
	}
	return wrapper.Run(ctx, desc, files)
}

func (e *Engine) timeoutSkip(desc core.Descriptor) core.ToolResult {
	return core.ToolResult{
		Tool:       desc.Name,
		Dimension:  desc.Dimension,
		Success:    true,
		Status:     core.StatusSkipped,
		ReasonCode: core.CodeTimeout,
		Errors:     []string{"run timeout expired before the tool started"},
	}
}
