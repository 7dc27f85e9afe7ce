package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

var defaultMarkers = []string{"go.mod", ".git"}

// Locator finds the workspace root a file belongs to. Explicitly configured
// roots win, the longest matching one is used. Otherwise the nearest parent
// holding go.mod or .git is the root.
type Locator struct {
	roots   []string
	markers []string
	cache   *lru.Cache[string, string]
}

func NewLocator(size int, roots ...string) (*Locator, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating workspace cache: %w", err)
	}
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if filepath.IsAbs(r) {
			clean = append(clean, filepath.Clean(r))
		}
	}
	return &Locator{
		roots:   clean,
		markers: defaultMarkers,
		cache:   cache,
	}, nil
}

// Root returns the workspace root of path. path may be a file or a directory.
func (l *Locator) Root(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		return "", false
	}
	path = filepath.Clean(path)

	var best string
	for _, r := range l.roots {
		if within(path, r) && len(r) > len(best) {
			best = r
		}
	}
	if best != "" {
		return best, true
	}

	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}
	if root, ok := l.cache.Get(dir); ok {
		return root, root != ""
	}
	root := l.walkUp(dir)
	l.cache.Add(dir, root)
	return root, root != ""
}

// Purge drops cached lookups, used when go.mod files appear or disappear.
func (l *Locator) Purge() {
	l.cache.Purge()
}

func (l *Locator) walkUp(dir string) string {
	for {
		for _, m := range l.markers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
