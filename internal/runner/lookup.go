package runner

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// LookPath finds tool in the PATH of env, the environment the tool is
// started with. The last PATH entry of env wins, as it does for exec.Cmd.
// Without PATH in env, or for names containing a separator, it behaves like
// exec.LookPath. Relative PATH entries are skipped.
func LookPath(tool string, env []string) (string, error) {
	pathEnv, ok := lookupEnv(env, "PATH")
	if !ok || runtime.GOOS == "windows" || strings.Contains(tool, "/") {
		return exec.LookPath(tool)
	}
	for _, dir := range filepath.SplitList(pathEnv) {
		if !filepath.IsAbs(dir) {
			continue
		}
		path := filepath.Join(dir, tool)
		if isExecutable(path) {
			return path, nil
		}
	}
	return "", &exec.Error{Name: tool, Err: exec.ErrNotFound}
}

func lookupEnv(env []string, key string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, key+"="); ok {
			value, found = v, true
		}
	}
	return value, found
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
