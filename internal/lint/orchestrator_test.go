package lint_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/CZERTAINLY/golinter/internal/lint"
	"github.com/CZERTAINLY/golinter/internal/metrics"
	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/paths"
	"github.com/CZERTAINLY/golinter/internal/runner"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T, r lint.ProcessRunner, root string) *lint.Orchestrator {
	t.Helper()
	return lint.New(r, rootLocator(root)).
		WithResolver(markResolver).
		WithEnv(func() []string { return []string{"PATH=/bin", "GOPATH=/home/gopher/go"} }).
		WithMetrics(metrics.New())
}

func TestLint_Golint(t *testing.T) {
	want := []model.Finding{
		{File: "/proj/pkg/a.go", Line: 1, Severity: model.SeverityWarning, Message: "should have a package comment"},
	}
	fr := &fakeRunner{run: func(context.Context, runner.Invocation) ([]model.Finding, error) {
		return want, nil
	}}
	o := newOrchestrator(t, fr, "/proj")

	cfg := model.Lint{Tool: "golint", Flags: []string{"--json", "--config=./rules"}}
	findings, err := o.Lint(t.Context(), "/proj/pkg/a.go", cfg, false)
	require.NoError(t, err)
	require.Equal(t, want, findings)
	require.False(t, o.Running())

	calls := fr.Calls()
	require.Len(t, calls, 1)
	inv := calls[0]
	require.Equal(t, "golint", inv.Tool)
	require.Equal(t, []string{"--config=<resolved ./rules>"}, inv.Args)
	require.Equal(t, "/proj/pkg", inv.Dir)
	require.Equal(t, []string{"PATH=/bin", "GOPATH=/home/gopher/go"}, inv.Env)
	require.Equal(t, model.SeverityWarning, inv.DefaultSeverity)
	require.False(t, inv.UseStderr)
}

func TestLint_GometalinterWorkspace(t *testing.T) {
	fr := &fakeRunner{}
	o := newOrchestrator(t, fr, "/proj")

	cfg := model.Lint{Tool: "gometalinter", ToolsGopath: "/extra"}
	findings, err := o.Lint(t.Context(), "/proj/cmd/main.go", cfg, true)
	require.NoError(t, err)
	require.Empty(t, findings)

	calls := fr.Calls()
	require.Len(t, calls, 1)
	inv := calls[0]
	require.Equal(t, "gometalinter", inv.Tool)
	require.Equal(t, []string{"--aggregate", "./..."}, inv.Args)
	require.Equal(t, "/proj", inv.Dir)
	require.Contains(t, inv.Env, "GOPATH=/home/gopher/go"+string(os.PathListSeparator)+"/extra")
}

func TestLint_DefaultTool(t *testing.T) {
	fr := &fakeRunner{}
	o := newOrchestrator(t, fr, "")
	_, err := o.Lint(t.Context(), "/tmp/x/a.go", model.Lint{}, true)
	require.NoError(t, err)
	calls := fr.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, model.ToolGolint, calls[0].Tool)
	require.Equal(t, "/tmp/x", calls[0].Dir)
	require.Empty(t, calls[0].Args, "no sentinel without a workspace root")
}

func TestLint_RelativeDirectory(t *testing.T) {
	fr := &fakeRunner{}
	o := newOrchestrator(t, fr, "/proj")

	for _, target := range []string{"a.go", "pkg/a.go", ""} {
		findings, err := o.Lint(t.Context(), target, model.Lint{Tool: "golint"}, false)
		require.NoError(t, err)
		require.Empty(t, findings)
	}
	require.Empty(t, fr.Calls())
	require.False(t, o.Running())
}

func TestLint_ErrorIsForwarded(t *testing.T) {
	want := &runner.ExecutionError{Tool: "golint", Kind: runner.KindNotFound, Err: errors.New("executable file not found in $PATH")}
	fr := &fakeRunner{run: func(context.Context, runner.Invocation) ([]model.Finding, error) {
		return nil, want
	}}
	o := newOrchestrator(t, fr, "/proj")

	findings, err := o.Lint(t.Context(), "/proj/a.go", model.Lint{}, false)
	require.Nil(t, findings)
	var got *runner.ExecutionError
	require.ErrorAs(t, err, &got)
	require.Same(t, want, got)
	require.False(t, o.Running())
}

func TestLint_Supersede(t *testing.T) {
	firstCtx := make(chan context.Context, 1)
	fr := &fakeRunner{}
	fr.run = func(ctx context.Context, inv runner.Invocation) ([]model.Finding, error) {
		if len(fr.Calls()) == 1 {
			firstCtx <- ctx
			<-ctx.Done()
			return nil, cancelled(ctx, inv)
		}
		return []model.Finding{{File: "/proj/b.go", Line: 2, Severity: model.SeverityWarning, Message: "second"}}, nil
	}

	var firstCancelledBeforeArgs bool
	o := newOrchestrator(t, fr, "/proj")

	type result struct {
		findings []model.Finding
		err      error
	}
	firstDone := make(chan result, 1)
	go func() {
		findings, err := o.Lint(t.Context(), "/proj/a.go", model.Lint{}, false)
		firstDone <- result{findings, err}
	}()

	var ctx1 context.Context
	select {
	case ctx1 = <-firstCtx:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not start")
	}
	require.True(t, o.Running())
	require.NoError(t, ctx1.Err())

	o.WithResolver(resolveFunc(func(path, root string) string {
		firstCancelledBeforeArgs = ctx1.Err() != nil
		return markResolver(path, root)
	}))
	findings, err := o.Lint(t.Context(), "/proj/b.go", model.Lint{Flags: []string{"--config=c.toml"}}, false)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.True(t, firstCancelledBeforeArgs, "first run must be cancelled before the second builds its arguments")

	var first result
	select {
	case first = <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not return")
	}
	require.Nil(t, first.findings)
	require.True(t, runner.IsCancelled(first.err))
	require.ErrorIs(t, first.err, context.Canceled)
	require.False(t, o.Running())
}

func TestLint_StaleRunDoesNotResurrect(t *testing.T) {
	release := make(chan struct{})
	firstCtx := make(chan context.Context, 1)
	fr := &fakeRunner{}
	fr.run = func(ctx context.Context, _ runner.Invocation) ([]model.Finding, error) {
		if len(fr.Calls()) == 1 {
			firstCtx <- ctx
			// ignores cancellation on purpose and finishes after the second run
			<-release
			return nil, nil
		}
		return nil, nil
	}
	o := newOrchestrator(t, fr, "/proj")

	var wg sync.WaitGroup
	wg.Go(func() {
		_, _ = o.Lint(t.Context(), "/proj/a.go", model.Lint{}, false)
	})
	ctx1 := <-firstCtx

	_, err := o.Lint(t.Context(), "/proj/b.go", model.Lint{}, false)
	require.NoError(t, err)
	require.ErrorIs(t, ctx1.Err(), context.Canceled)
	require.False(t, o.Running(), "second run finished last in the state's eyes")

	close(release)
	wg.Wait()
	require.False(t, o.Running())
}

func TestLint_ParentCancel(t *testing.T) {
	fr := &fakeRunner{run: func(ctx context.Context, inv runner.Invocation) ([]model.Finding, error) {
		<-ctx.Done()
		return nil, cancelled(ctx, inv)
	}}
	o := newOrchestrator(t, fr, "/proj")

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err := o.Lint(ctx, "/proj/a.go", model.Lint{}, false)
	require.True(t, runner.IsCancelled(err))
	require.False(t, o.Running())
}

func TestLint_Concurrent(t *testing.T) {
	fr := &fakeRunner{run: func(ctx context.Context, inv runner.Invocation) ([]model.Finding, error) {
		select {
		case <-ctx.Done():
			return nil, cancelled(ctx, inv)
		case <-time.After(5 * time.Millisecond):
			return nil, nil
		}
	}}
	o := newOrchestrator(t, fr, "/proj")

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			_, err := o.Lint(t.Context(), "/proj/a.go", model.Lint{}, true)
			if err != nil && !runner.IsCancelled(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()
	require.Len(t, fr.Calls(), 32)
	require.False(t, o.Running())
}

func TestLint_ModuleLocator(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/m\n"), 0o644))
	locator, err := paths.NewLocator(4)
	require.NoError(t, err)

	fr := &fakeRunner{}
	o := lint.New(fr, locator).
		WithEnv(func() []string { return []string{"PATH=/bin"} })

	_, err = o.Lint(t.Context(), filepath.Join(root, "pkg", "a.go"), model.Lint{}, true)
	require.NoError(t, err)

	calls := fr.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, root, calls[0].Dir)
	require.Equal(t, []string{lint.RecursiveSentinel}, calls[0].Args)
}
