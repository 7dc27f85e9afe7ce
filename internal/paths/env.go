package paths

import (
	"go/build"
	"os"
	"strings"
)

// ToolsEnv returns the environment lint tools are started with: the process
// environment with GOPATH defaulted the way the go command does.
func ToolsEnv() []string {
	return withGopath(os.Environ(), build.Default.GOPATH)
}

func withGopath(environ []string, gopath string) []string {
	env := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		if kv == "GOPATH=" {
			continue
		}
		if strings.HasPrefix(kv, "GOPATH=") {
			gopath = ""
		}
		env = append(env, kv)
	}
	if gopath != "" {
		env = append(env, "GOPATH="+gopath)
	}
	return env
}
