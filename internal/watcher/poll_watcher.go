package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

type (
	// pollWatcher re-scans a root every interval and diffs
	// the result against the previous scan.
	pollWatcher struct {
		root     string
		interval time.Duration
		matcher  *Matcher

		snapshot snapshot
		// subtrees that could not be read, reported once
		unreadable map[string]struct{}

		emit   func(events.ChangeEvent)
		report func(gperr.Error)
		l      zerolog.Logger
	}
	fileState struct {
		isDir   bool
		size    int64
		modTime time.Time
	}
	snapshot map[string]fileState
)

func newPollWatcher(root string, interval time.Duration, matcher *Matcher, emit func(events.ChangeEvent), report func(gperr.Error), l zerolog.Logger) (*pollWatcher, error) {
	p := &pollWatcher{
		root:       root,
		interval:   interval,
		matcher:    matcher,
		unreadable: make(map[string]struct{}),
		emit:       emit,
		report:     report,
		l:          l,
	}
	snap, err := p.scan()
	if err != nil {
		return nil, err
	}
	p.snapshot = snap
	return p, nil
}

func (p *pollWatcher) Root() string    { return p.root }
func (p *pollWatcher) Backend() string { return "poll" }

func (p *pollWatcher) close() error {
	p.snapshot = nil
	return nil
}

// run rescans every interval until ctx is done.
// It returns true when the root itself is gone.
func (p *pollWatcher) run(ctx context.Context) (rootLost bool) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			next, err := p.scan()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					p.diff(p.snapshot, snapshot{}, time.Now())
					return true
				}
				p.report(gperr.ErrWatchSubtree.Subject(p.root).With(err))
				continue
			}
			p.diff(p.snapshot, next, time.Now())
			p.snapshot = next
		}
	}
}

func (p *pollWatcher) scan() (snapshot, error) {
	info, err := os.Stat(p.root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: p.root, Err: fs.ErrNotExist}
	}

	snap := make(snapshot, len(p.snapshot))
	err = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == p.root {
				return err
			}
			if _, reported := p.unreadable[path]; !reported && !errors.Is(err, fs.ErrNotExist) {
				p.unreadable[path] = struct{}{}
				p.report(gperr.ErrWatchSubtree.Subject(path).With(err))
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == p.root {
			return nil
		}
		if p.matcher.Match(p.root, path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// removed between readdir and stat
			return nil
		}
		delete(p.unreadable, path)
		snap[path] = fileState{
			isDir:   info.IsDir(),
			size:    info.Size(),
			modTime: info.ModTime(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// diff emits Removed, then Added, then Modified events, each in path order.
func (p *pollWatcher) diff(prev, next snapshot, now time.Time) {
	var removed, added, modified []string
	for path, old := range prev {
		cur, ok := next[path]
		switch {
		case !ok:
			removed = append(removed, path)
		case cur.isDir != old.isDir:
			removed = append(removed, path)
			added = append(added, path)
		case !cur.isDir && (cur.size != old.size || !cur.modTime.Equal(old.modTime)):
			modified = append(modified, path)
		}
	}
	for path := range next {
		if _, ok := prev[path]; !ok {
			added = append(added, path)
		}
	}
	slices.Sort(removed)
	slices.Sort(added)
	slices.Sort(modified)

	// children before parents
	for i := len(removed) - 1; i >= 0; i-- {
		path := removed[i]
		p.emit(events.ChangeEvent{Root: p.root, Path: path, Kind: events.Removed, IsDir: prev[path].isDir, Time: now})
	}
	for _, path := range added {
		p.emit(events.ChangeEvent{Root: p.root, Path: path, Kind: events.Added, IsDir: next[path].isDir, Time: now})
	}
	for _, path := range modified {
		p.emit(events.ChangeEvent{Root: p.root, Path: path, Kind: events.Modified, Time: now})
	}
}
