package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CZERTAINLY/golinter/internal/lint"
	"github.com/CZERTAINLY/golinter/internal/log"
	"github.com/CZERTAINLY/golinter/internal/metrics"
	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/paths"
	"github.com/CZERTAINLY/golinter/internal/runner"
	"github.com/CZERTAINLY/golinter/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagWorkspace      bool   // value of lint --workspace
	flagFormat         string // value of lint --format
	flagFailOnFindings bool   // value of lint --fail-on-findings
)

func newRunner() *runner.Runner {
	return runner.New().WithStderrFunc(func(ctx context.Context, line string) {
		slog.DebugContext(ctx, "tool stderr", "line", line)
	})
}

func doLint(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.ContextAttrs(ctx, slog.Group("golinter",
		slog.String("cmd", "lint"),
		slog.Int("pid", os.Getpid()),
	))

	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	workspace := flagWorkspace || config.Lint.Workspace

	locator, err := paths.NewLocator(16)
	if err != nil {
		return err
	}
	if workspace {
		if _, ok := locator.Root(target); !ok {
			return fmt.Errorf("%s: %w", target, model.ErrNoWorkspace)
		}
	}
	orchestrator := lint.New(newRunner(), locator)

	report := model.Report{
		RunID:     uuid.NewString(),
		Tool:      config.Lint.WithDefaults().Tool,
		Target:    target,
		Workspace: workspace,
		Started:   time.Now().UTC(),
	}
	findings, err := orchestrator.Lint(ctx, target, config.Lint, workspace)
	report.Stopped = time.Now().UTC()
	if err != nil {
		return err
	}
	report.Findings = findings

	svc := config.Service
	if flagFormat != "" {
		svc.Format = flagFormat
	}
	uploaders, err := service.Uploaders(svc, os.Stdout)
	if err != nil {
		return err
	}
	defer service.CloseUploaders(ctx, uploaders)
	if err := service.Upload(ctx, uploaders, report); err != nil {
		return err
	}

	if flagFailOnFindings && len(findings) > 0 {
		return model.ErrFindings
	}
	return nil
}

func doWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.ContextAttrs(ctx, slog.Group("golinter",
		slog.String("cmd", "watch"),
		slog.Int("pid", os.Getpid()),
	))

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	locator, err := paths.NewLocator(256, root)
	if err != nil {
		return err
	}
	var m *metrics.Metrics
	if config.Service.Metrics.Enabled {
		m = metrics.New()
	}
	orchestrator := lint.New(newRunner(), locator).WithMetrics(m)

	supervisor, err := service.NewSupervisor(ctx, orchestrator, config, root)
	if err != nil {
		return err
	}
	supervisor.OnModuleChange(locator.Purge)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Do(ctx)
	})
	if m != nil {
		g.Go(func() error {
			return serveMetrics(ctx, config.Service.Metrics.Addr, m)
		})
	}
	supervisor.StartWorkspace()
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
