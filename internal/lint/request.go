package lint

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/CZERTAINLY/golinter/internal/model"
	"github.com/CZERTAINLY/golinter/internal/runner"
)

const (
	FlagJSON      = "--json"
	FlagConfig    = "--config="
	FlagAggregate = "--aggregate"

	// RecursiveSentinel means all packages of the module rooted in the working directory.
	RecursiveSentinel = "./..."
)

// Request is everything needed to execute a tool for a single run.
type Request struct {
	Target    string
	Workspace bool   // true when the run covers Root
	Root      string // workspace root of Target, if any
	Dir       string
	Tool      string
	Args      []string
	Env       []string
}

func (r Request) Invocation() runner.Invocation {
	return runner.Invocation{
		Tool:                  r.Tool,
		Args:                  r.Args,
		Dir:                   r.Dir,
		Env:                   r.Env,
		DefaultSeverity:       model.SeverityWarning,
		UseStderr:             false,
		PrintUnexpectedOutput: false,
	}
}

// BuildArgs translates configured flags into the tool arguments.
// resolve is applied exactly once to every --config= value.
func BuildArgs(cfg model.Lint, resolve func(string) string, recursive bool) []string {
	args := make([]string, 0, len(cfg.Flags)+2)
	for _, flag := range cfg.Flags {
		switch {
		case flag == FlagJSON:
			continue
		case strings.HasPrefix(flag, FlagConfig):
			args = append(args, FlagConfig+resolve(strings.TrimPrefix(flag, FlagConfig)))
		default:
			args = append(args, flag)
		}
	}

	if cfg.Tool == model.ToolGometalinter && !slices.Contains(args, FlagAggregate) {
		args = append(args, FlagAggregate)
	}

	if recursive {
		args = append(args, RecursiveSentinel)
	}
	return args
}

// BuildEnv returns a copy of base adapted to the tool. For gometalinter the
// GOPATH is extended with cfg.ToolsGopath, so the linters it installs there
// can be found. An empty or missing GOPATH becomes cfg.ToolsGopath.
func BuildEnv(base []string, cfg model.Lint) []string {
	env := slices.Clone(base)
	if cfg.Tool != model.ToolGometalinter || cfg.ToolsGopath == "" {
		return env
	}

	const key = "GOPATH="
	idx := -1
	for i, kv := range env {
		if strings.HasPrefix(kv, key) {
			idx = i
		}
	}
	if idx < 0 {
		return append(env, key+cfg.ToolsGopath)
	}
	if env[idx] == key {
		env[idx] = key + cfg.ToolsGopath
		return env
	}
	env[idx] += string(os.PathListSeparator) + cfg.ToolsGopath
	return env
}

// NewRequest computes the working directory, arguments and environment of a
// run. It returns false when the working directory is not absolute.
func (o *Orchestrator) NewRequest(target string, cfg model.Lint, workspace bool) (Request, bool) {
	cfg = cfg.WithDefaults()

	root, hasRoot := o.locator.Root(target)
	req := Request{
		Target:    target,
		Workspace: workspace && hasRoot,
		Root:      root,
		Tool:      cfg.Tool,
	}
	if req.Workspace {
		req.Dir = root
	} else {
		req.Dir = filepath.Dir(target)
	}
	if !filepath.IsAbs(req.Dir) {
		return req, false
	}

	resolve := func(p string) string {
		return o.resolver.Resolve(p, root)
	}
	req.Args = BuildArgs(cfg, resolve, req.Workspace)
	req.Env = BuildEnv(o.env(), cfg)
	return req, true
}
