package exclude

import (
	"path"
	"path/filepath"
	"strings"
)

// Matcher matches slash-separated relative paths against exclude patterns.
//
// A pattern ending in "/**" matches a directory and everything below it.
// Other patterns use path.Match syntax and are tried against the whole
// relative path and against its last element, so "*.blade.php" excludes
// templates at any depth.
type Matcher struct {
	patterns []string
}

// NewMatcher returns a matcher for patterns. Empty patterns are ignored.
func NewMatcher(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		p = strings.TrimPrefix(p, "./")
		if p != "" {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// Match reports whether rel is excluded. isDir lets "dir/**" match the
// directory itself so a walk can skip it.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	base := path.Base(rel)

	for _, p := range m.patterns {
		if prefix, ok := strings.CutSuffix(p, "/**"); ok {
			if rel == prefix && isDir {
				return true
			}
			if strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			// "**/cache/**" style: any directory named prefix's last element.
			if strings.HasPrefix(prefix, "**/") {
				name := strings.TrimPrefix(prefix, "**/")
				if isDir && base == name {
					return true
				}
				if strings.Contains("/"+rel, "/"+name+"/") {
					return true
				}
			}
			continue
		}
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Patterns returns the matcher's patterns.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
