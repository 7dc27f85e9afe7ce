package lint

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CZERTAINLY/golinter/internal/log"
	"github.com/CZERTAINLY/golinter/internal/metrics"
	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/paths"
	"github.com/CZERTAINLY/golinter/internal/runner"
)

// ProcessRunner executes a lint tool. It must stop promptly once ctx is
// cancelled and report that as an error.
type ProcessRunner interface {
	Run(ctx context.Context, inv runner.Invocation) ([]model.Finding, error)
}

// PathResolver expands placeholders in --config= values.
type PathResolver interface {
	Resolve(path, root string) string
}

// WorkspaceLocator returns the workspace root of a file.
type WorkspaceLocator interface {
	Root(path string) (string, bool)
}

type Orchestrator struct {
	runner   ProcessRunner
	resolver PathResolver
	locator  WorkspaceLocator
	env      func() []string
	metrics  *metrics.Metrics
	state    runState
}

// New returns an Orchestrator running tools through r and finding workspace
// roots with l, typically a *paths.Locator. It uses the process environment
// and a paths.Resolver; use With* methods to replace them.
func New(r ProcessRunner, l WorkspaceLocator) *Orchestrator {
	return &Orchestrator{
		runner:   r,
		resolver: paths.NewResolver(),
		locator:  l,
		env:      paths.ToolsEnv,
	}
}

func (o *Orchestrator) WithResolver(r PathResolver) *Orchestrator {
	o.resolver = r
	return o
}

// WithEnv sets the function providing the base environment of every run.
func (o *Orchestrator) WithEnv(env func() []string) *Orchestrator {
	o.env = env
	return o
}

func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Running reports whether a run is in progress.
func (o *Orchestrator) Running() bool {
	return o.state.isRunning()
}

// Lint runs the configured tool for target, a file path. With workspace set
// and a workspace root found for target, the tool runs over the whole root.
//
// Any run in progress is cancelled before the new one starts. When the working
// directory is not absolute, Lint returns an empty result without running
// anything. Findings and errors of the ProcessRunner are returned as they are.
func (o *Orchestrator) Lint(ctx context.Context, target string, cfg model.Lint, workspace bool) ([]model.Finding, error) {
	runCtx, epoch, superseded := o.state.begin(ctx)
	defer o.state.end(epoch)

	ctx = log.ContextAttrs(runCtx, slog.Group("lint",
		slog.String("run_id", uuid.NewString()),
		slog.Uint64("epoch", epoch),
		slog.String("target", target),
	))
	if superseded {
		o.metrics.Superseded()
		slog.DebugContext(ctx, "previous run cancelled")
	}

	req, ok := o.NewRequest(target, cfg, workspace)
	if !ok {
		o.metrics.Skipped(req.Tool)
		slog.DebugContext(ctx, "working directory is not absolute: skipping", "dir", req.Dir)
		return nil, nil
	}
	slog.DebugContext(ctx, "running lint tool",
		"tool", req.Tool,
		"args", req.Args,
		"dir", req.Dir,
		"workspace", req.Workspace,
	)

	now := time.Now()
	findings, err := o.runner.Run(ctx, req.Invocation())
	elapsed := time.Since(now)

	switch {
	case err == nil:
		o.metrics.Finished(req.Tool, metrics.OutcomeOK, elapsed, findings)
		slog.DebugContext(ctx, "lint finished", "findings", len(findings), "elapsed", elapsed.String())
	case runner.IsCancelled(err):
		o.metrics.Finished(req.Tool, metrics.OutcomeCancelled, elapsed, nil)
		slog.DebugContext(ctx, "lint cancelled", "elapsed", elapsed.String())
	default:
		o.metrics.Finished(req.Tool, metrics.OutcomeFailed, elapsed, nil)
		slog.DebugContext(ctx, "lint failed", "error", err)
	}
	return findings, err
}

// runState holds the single authoritative run. Every run gets a new epoch and
// its own cancel func, so cancelling or finishing an old epoch never touches a
// newer one.
type runState struct {
	mx      sync.Mutex
	running bool
	epoch   uint64
	cancel  context.CancelFunc
}

// begin cancels the current run, if any, and starts a new epoch.
func (s *runState) begin(ctx context.Context) (context.Context, uint64, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()

	superseded := s.running
	if s.running && s.cancel != nil {
		s.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.epoch++
	s.running = true
	return runCtx, s.epoch, superseded
}

// end marks the state idle if epoch is still the current one.
func (s *runState) end(epoch uint64) {
	s.mx.Lock()
	defer s.mx.Unlock()

	if epoch != s.epoch {
		return
	}
	s.running = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *runState) isRunning() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.running
}
