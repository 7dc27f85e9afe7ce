package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/CZERTAINLY/golinter/internal/model"
)

// WaitDelay bounds how long Run waits for output pipes once the tool was killed.
const WaitDelay = 2 * time.Second

// Invocation describes one execution of a lint tool.
type Invocation struct {
	Tool            string
	Args            []string
	Dir             string
	Env             []string
	DefaultSeverity model.Severity // used when a line carries no error:/warning: category
	UseStderr       bool           // parse stderr instead of stdout
	// PrintUnexpectedOutput reports unparseable stderr of a failed tool as
	// an error instead of an empty result. Only used together with UseStderr.
	PrintUnexpectedOutput bool
}

type Kind int

const (
	KindFailed Kind = iota
	KindNotFound
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// ExecutionError is returned when a tool cannot be started, fails without
// producing diagnostics, or is cancelled.
type ExecutionError struct {
	Tool   string
	Kind   Kind
	Stderr string
	Err    error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("running %s: %s", e.Tool, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err comes from a run cancelled by its context.
func IsCancelled(err error) bool {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind == KindCancelled
	}
	return errors.Is(err, context.Canceled)
}

type StderrFunc func(ctx context.Context, line string)

type Runner struct {
	stderrFunc StderrFunc
	lookPath   func(tool string, env []string) (string, error)
}

func New() *Runner {
	return &Runner{lookPath: LookPath}
}

// WithStderrFunc sets a callback receiving every stderr line of the tool.
func (r *Runner) WithStderrFunc(fn StderrFunc) *Runner {
	r.stderrFunc = fn
	return r
}

// Run executes the tool and blocks until it exits or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, inv Invocation) ([]model.Finding, error) {
	path, err := r.lookPath(inv.Tool, inv.Env)
	if err != nil {
		return nil, &ExecutionError{Tool: inv.Tool, Kind: KindNotFound, Err: err}
	}
	if inv.DefaultSeverity == "" {
		inv.DefaultSeverity = model.SeverityWarning
	}

	var stdout bytes.Buffer
	stderr := &lineWriter{ctx: ctx, fn: r.stderrFunc}

	cmd := exec.CommandContext(ctx, path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = WaitDelay
	killGroup(cmd)

	started := time.Now()
	waitErr := cmd.Run()
	stderr.flush()

	slog.DebugContext(ctx, "tool finished",
		"tool", inv.Tool,
		"args", inv.Args,
		"dir", inv.Dir,
		"elapsed", time.Since(started).String(),
		"error", waitErr,
	)

	if ctx.Err() != nil {
		return nil, &ExecutionError{Tool: inv.Tool, Kind: KindCancelled, Stderr: stderr.String(), Err: ctx.Err()}
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// not started or output could not be collected
		return nil, &ExecutionError{Tool: inv.Tool, Stderr: stderr.String(), Err: waitErr}
	}

	if inv.UseStderr {
		findings := Parse(stderr.String(), inv.Dir, inv.DefaultSeverity)
		if len(findings) == 0 && waitErr != nil && inv.PrintUnexpectedOutput && stderr.Len() > 0 {
			return nil, &ExecutionError{Tool: inv.Tool, Stderr: stderr.String(), Err: waitErr}
		}
		return findings, nil
	}

	findings := Parse(stdout.String(), inv.Dir, inv.DefaultSeverity)
	if len(findings) == 0 && waitErr != nil && stderr.Len() > 0 {
		return nil, &ExecutionError{Tool: inv.Tool, Stderr: stderr.String(), Err: waitErr}
	}
	return findings, nil
}

// lineWriter collects stderr and hands complete lines to fn.
// exec.Cmd writes to it from a single goroutine.
type lineWriter struct {
	ctx     context.Context
	fn      StderrFunc
	buf     bytes.Buffer
	pending []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.fn == nil {
		return len(p), nil
	}
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.fn(w.ctx, strings.TrimRight(string(w.pending[:i]), "\r"))
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.fn != nil && len(w.pending) > 0 {
		w.fn(w.ctx, string(w.pending))
	}
	w.pending = nil
}

func (w *lineWriter) String() string { return w.buf.String() }

func (w *lineWriter) Len() int { return w.buf.Len() }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
