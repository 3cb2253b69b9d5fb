package watcher

import (
	"testing"

	"github.com/yusing/fswatch-forward/internal/config/types"
	"github.com/yusing/fswatch-forward/internal/gperr"
	. "github.com/yusing/fswatch-forward/internal/utils/testing"
)

func TestMatcherDefaults(t *testing.T) {
	m, err := NewMatcher(types.DefaultIgnorePatterns)
	ExpectNoError(t, err)

	ignored := []string{
		"/src/.git",
		"/src/.git/objects/ab/cdef",
		"/src/pkg/.main.go.swp",
		"/src/pkg/main.go~",
		"/src/4913",
		"/src/.#main.go",
	}
	for _, p := range ignored {
		ExpectTrue(t, m.Match("/src", p))
	}
	kept := []string{
		"/src",
		"/src/main.go",
		"/src/git/file",
		"/src/locales/en.yml",
	}
	for _, p := range kept {
		ExpectFalse(t, m.Match("/src", p))
	}
}

func TestMatcherRelativePath(t *testing.T) {
	m, err := NewMatcher([]string{"build/**", "# comment", ""})
	ExpectNoError(t, err)
	ExpectTrue(t, m.Match("/src", "/src/build/out/a.o"))
	ExpectFalse(t, m.Match("/src", "/src/pkg/build.go"))
}

func TestMatcherNil(t *testing.T) {
	var m *Matcher
	ExpectFalse(t, m.Match("/src", "/src/.git"))
}

func TestMatcherInvalid(t *testing.T) {
	_, err := NewMatcher([]string{"[unclosed"})
	ExpectError(t, gperr.ErrConfiguration, err)
}
