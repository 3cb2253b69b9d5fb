package watcher

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/yusing/fswatch-forward/internal/gperr"
)

// Matcher matches paths against ignore patterns.
//
// A path is ignored when any pattern matches its path relative to the
// watch root, or any single element of that relative path.
// A nil Matcher ignores nothing.
type Matcher struct {
	patterns []glob.Glob
}

var ErrInvalidPattern = gperr.New("invalid ignore pattern")

func NewMatcher(patterns []string) (*Matcher, gperr.Error) {
	m := &Matcher{patterns: make([]glob.Glob, 0, len(patterns))}
	errs := gperr.NewBuilder("")
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			errs.Add(ErrInvalidPattern.Subject(pattern).With(err))
			continue
		}
		m.patterns = append(m.patterns, g)
	}
	if errs.HasError() {
		return nil, gperr.ErrConfiguration.With(errs.Error())
	}
	return m, nil
}

// Match reports whether path under root should be ignored.
func (m *Matcher) Match(root, path string) bool {
	if m == nil || len(m.patterns) == 0 || path == root {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range m.patterns {
		if g.Match(rel) {
			return true
		}
		for _, elem := range strings.Split(rel, "/") {
			if g.Match(elem) {
				return true
			}
		}
	}
	return false
}
