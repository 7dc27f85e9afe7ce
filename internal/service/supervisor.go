package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gocron "github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/runner"
)

// Linter is implemented by *lint.Orchestrator.
type Linter interface {
	Lint(ctx context.Context, target string, cfg model.Lint, workspace bool) ([]model.Finding, error)
}

type Supervisor struct {
	linter    Linter
	cfg       model.Lint
	root      string
	debounce  time.Duration
	uploaders []model.Uploader
	onModule  func()
	scheduler gocron.Scheduler
	start     chan trigger
	results   chan model.Report
	wg        sync.WaitGroup
}

type trigger struct {
	target    string
	workspace bool
}

// NewSupervisor creates a supervisor watching root, an absolute directory.
func NewSupervisor(ctx context.Context, linter Linter, cfg model.Config, root string) (*Supervisor, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("workspace root %q is not absolute", root)
	}
	uploaders, err := Uploaders(cfg.Service, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("initializing uploaders: %w", err)
	}

	s := &Supervisor{
		linter:    linter,
		cfg:       cfg.Lint.WithDefaults(),
		root:      filepath.Clean(root),
		debounce:  cfg.Service.DebounceDuration(),
		uploaders: uploaders,
		start:     make(chan trigger, 16),
		results:   make(chan model.Report, 1),
	}

	if cfg.Service.Schedule != nil {
		scheduler, err := newScheduler(ctx, *cfg.Service.Schedule, s.StartWorkspace)
		if err != nil {
			CloseUploaders(ctx, uploaders)
			return nil, fmt.Errorf("schedule failed: %w", err)
		}
		s.scheduler = scheduler
	}
	return s, nil
}

// WithUploaders replaces the configured uploaders.
func (s *Supervisor) WithUploaders(ctx context.Context, uploaders ...model.Uploader) *Supervisor {
	CloseUploaders(ctx, s.uploaders)
	s.uploaders = uploaders
	return s
}

// OnModuleChange sets a callback run when a go.mod file changes.
func (s *Supervisor) OnModuleChange(fn func()) *Supervisor {
	s.onModule = fn
	return s
}

// Start asks the supervisor to lint target. It never blocks; the request is
// dropped when too many are queued, as a newer run supersedes them anyway.
func (s *Supervisor) Start(target string) {
	s.trigger(trigger{target: target, workspace: s.cfg.Workspace})
}

// StartWorkspace asks the supervisor to lint the whole workspace.
func (s *Supervisor) StartWorkspace() {
	s.trigger(trigger{target: s.root, workspace: true})
}

func (s *Supervisor) trigger(t trigger) {
	select {
	case s.start <- t:
	default:
		slog.Warn("too many lint requests: dropping", "target", t.target)
	}
}

// Do runs the supervisor event loop until ctx is cancelled.
// It multiplexes:
//  1. filesystem events of *.go files, debounced into lint runs
//  2. Start/StartWorkspace triggers, including the scheduled ones
//  3. reports of finished runs, which are uploaded
//
// Shutdown order: cancel running lints -> wait for them -> close uploaders ->
// stop the scheduler -> close the watcher.
func (s *Supervisor) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a supervisor", "root", s.root)

	watcher, err := newWatcher(ctx, s.root)
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	if s.scheduler != nil {
		s.scheduler.Start()
		defer func() {
			if err := s.scheduler.Shutdown(); err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	defer CloseUploaders(ctx, s.uploaders)
	defer s.wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pending := make(map[string]struct{})
	debounce := time.NewTimer(s.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if target, ok := s.handleEvent(ctx, watcher, ev); ok {
				pending[target] = struct{}{}
				debounce.Reset(s.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			slog.WarnContext(ctx, "watcher error", "error", err)
		case <-debounce.C:
			s.flush(ctx, pending)
			clear(pending)
		case t := <-s.start:
			s.run(ctx, t)
		case report := <-s.results:
			if err := Upload(ctx, s.uploaders, report); err != nil {
				slog.ErrorContext(ctx, "upload failed", "error", err)
			}
		}
	}
}

// handleEvent returns the lint target for ev. Removed or renamed files and
// go.mod changes make the root the target.
func (s *Supervisor) handleEvent(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event) (string, bool) {
	if ev.Op == fsnotify.Chmod {
		return "", false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if skipDir(filepath.Base(ev.Name)) {
				return "", false
			}
			if err := watchTree(ctx, w, ev.Name); err != nil {
				slog.WarnContext(ctx, "watching new directory", "path", ev.Name, "error", err)
			}
			return "", false
		}
	}
	if filepath.Base(ev.Name) == "go.mod" {
		if s.onModule != nil {
			s.onModule()
		}
		return s.root, true
	}
	if !isGoFile(ev.Name) {
		return "", false
	}
	switch {
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		return ev.Name, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return s.root, true
	}
	return "", false
}

func (s *Supervisor) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	_, rootChanged := pending[s.root]
	if s.cfg.Workspace || rootChanged || len(pending) > 1 {
		s.run(ctx, trigger{target: s.root, workspace: true})
		return
	}
	for target := range pending {
		s.run(ctx, trigger{target: target, workspace: false})
	}
}

func (s *Supervisor) run(ctx context.Context, t trigger) {
	s.wg.Go(func() {
		report := model.Report{
			RunID:     uuid.NewString(),
			Tool:      s.cfg.Tool,
			Target:    t.target,
			Workspace: t.workspace,
			Started:   time.Now().UTC(),
		}
		findings, err := s.linter.Lint(ctx, t.target, s.cfg, t.workspace)
		report.Stopped = time.Now().UTC()
		if err != nil {
			if runner.IsCancelled(err) {
				slog.DebugContext(ctx, "lint superseded", "target", t.target)
				return
			}
			slog.ErrorContext(ctx, "lint failed", "target", t.target, "error", err)
			return
		}
		report.Findings = findings
		select {
		case s.results <- report:
		case <-ctx.Done():
		}
	})
}

func newScheduler(ctx context.Context, cfg model.Schedule, startFunc func()) (gocron.Scheduler, error) {
	var job gocron.JobDefinition
	switch {
	case cfg.Cron != "":
		if err := model.ParseCron(cfg.Cron); err != nil {
			return nil, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		job = gocron.CronJob(cfg.Cron, false)
	case cfg.Duration != "":
		d, err := model.ParseISODuration(cfg.Duration)
		if err != nil {
			return nil, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("service.schedule.duration must be positive: %s", cfg.Duration)
		}
		job = gocron.DurationJob(d)
	default:
		return nil, errors.New("both cron and duration are empty")
	}
	if interval, err := cfg.Interval(time.Now()); err == nil {
		slog.DebugContext(ctx, "lint schedule", "interval", interval.String())
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		job,
		gocron.NewTask(startFunc),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return s, nil
}
