package lint_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/runner"
)

type runFunc func(ctx context.Context, inv runner.Invocation) ([]model.Finding, error)

type fakeRunner struct {
	mx    sync.Mutex
	calls []runner.Invocation
	run   runFunc
}

func (f *fakeRunner) Run(ctx context.Context, inv runner.Invocation) ([]model.Finding, error) {
	f.mx.Lock()
	f.calls = append(f.calls, inv)
	run := f.run
	f.mx.Unlock()
	if run == nil {
		return nil, nil
	}
	return run(ctx, inv)
}

func (f *fakeRunner) Calls() []runner.Invocation {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]runner.Invocation(nil), f.calls...)
}

// cancelled mimics what runner.Runner returns for a cancelled execution
func cancelled(ctx context.Context, inv runner.Invocation) error {
	return &runner.ExecutionError{Tool: inv.Tool, Kind: runner.KindCancelled, Err: ctx.Err()}
}

// resolveFunc adapts a function to lint.PathResolver
type resolveFunc func(path, root string) string

func (f resolveFunc) Resolve(path, root string) string { return f(path, root) }

// markResolver wraps the path so double resolution is visible
var markResolver = resolveFunc(func(path, _ string) string {
	return "<resolved " + path + ">"
})

// rootLocator treats root as the workspace of every path below it
type rootLocator string

func (l rootLocator) Root(path string) (string, bool) {
	root := string(l)
	if root == "" || !filepath.IsAbs(path) {
		return "", false
	}
	if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
		return root, true
	}
	return "", false
}
