package watcher

import (
	"testing"
	"time"

	. "github.com/yusing/fswatch-forward/internal/utils/testing"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

func TestPollDiff(t *testing.T) {
	var got []events.ChangeEvent
	p := &pollWatcher{
		root: "/r",
		emit: func(ev events.ChangeEvent) { got = append(got, ev) },
	}
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)
	prev := snapshot{
		"/r/a":     {isDir: true},
		"/r/a/b":   {size: 1, modTime: t0},
		"/r/c":     {size: 1, modTime: t0},
		"/r/d":     {size: 1, modTime: t0},
		"/r/e":     {isDir: true},
		"/r/same":  {size: 1, modTime: t0},
		"/r/touch": {size: 1, modTime: t0},
	}
	next := snapshot{
		"/r/c":     {size: 2, modTime: t0},
		"/r/d":     {size: 1, modTime: t0},
		"/r/e":     {size: 3, modTime: t1},
		"/r/f":     {size: 1, modTime: t1},
		"/r/same":  {size: 1, modTime: t0},
		"/r/touch": {size: 1, modTime: t1},
	}
	p.diff(prev, next, t1)

	type kp struct {
		kind events.Kind
		path string
	}
	want := []kp{
		{events.Removed, "/r/e"},
		{events.Removed, "/r/a/b"},
		{events.Removed, "/r/a"},
		{events.Added, "/r/e"},
		{events.Added, "/r/f"},
		{events.Modified, "/r/c"},
		{events.Modified, "/r/touch"},
	}
	result := make([]kp, len(got))
	for i, ev := range got {
		result[i] = kp{ev.Kind, ev.Path}
		ExpectEqual(t, ev.Root, "/r")
	}
	ExpectDeepEqual(t, result, want)
	ExpectTrue(t, got[2].IsDir)
}
