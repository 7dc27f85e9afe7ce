// Package paths resolves user supplied paths and locates workspace roots.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver expands placeholders in paths taken from the configuration.
type Resolver struct {
	home      string
	lookupEnv func(string) (string, bool)
}

func NewResolver() Resolver {
	home, _ := os.UserHomeDir()
	return Resolver{
		home:      home,
		lookupEnv: os.LookupEnv,
	}
}

// WithEnv makes the resolver read variables from env (KEY=value pairs)
// instead of the process environment.
func (r Resolver) WithEnv(env []string) Resolver {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	r.lookupEnv = func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
	return r
}

func (r Resolver) WithHome(home string) Resolver {
	r.home = home
	return r
}

// Resolve replaces ${workspaceRoot} and ${workspaceFolder} with root, a leading ~
// with the home directory and $VAR or ${VAR} with environment values.
// Unknown variables and workspace placeholders without a root are left untouched.
func (r Resolver) Resolve(path, root string) string {
	if strings.TrimSpace(path) == "" {
		return path
	}

	path = r.expand(path, root)

	if r.home != "" && (path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator))) {
		path = filepath.Join(r.home, path[1:])
	}
	return path
}

// expand substitutes $name and ${name} references. References that can't be
// resolved are copied byte for byte.
func (r Resolver) expand(s, root string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++
			continue
		}
		name, w := varName(s[i+1:])
		ref := s[i : i+1+w]
		i += 1 + w
		if v, ok := r.lookup(name, root); ok {
			b.WriteString(v)
		} else {
			b.WriteString(ref)
		}
	}
	return b.String()
}

func (r Resolver) lookup(name, root string) (string, bool) {
	switch name {
	case "":
		return "", false
	case "workspaceRoot", "workspaceFolder":
		return root, root != ""
	}
	return r.lookupEnv(name)
}

// varName returns the variable name following a $ and the number of bytes
// the reference takes after the $. An unterminated or empty reference has no name.
func varName(s string) (string, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0
		}
		return s[1:end], end + 1
	}
	n := 0
	for n < len(s) && isNameByte(s[n]) {
		n++
	}
	return s[:n], n
}

func isNameByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
