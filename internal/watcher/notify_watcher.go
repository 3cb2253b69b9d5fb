package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/yusing/fswatch-forward/internal/gperr"
	F "github.com/yusing/fswatch-forward/internal/utils/functional"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

// notifyWatcher watches a root recursively with one fsnotify watch per directory.
type notifyWatcher struct {
	root    string
	w       *fsnotify.Watcher
	dirs    F.Map[string, struct{}]
	matcher *Matcher

	emit   func(events.ChangeEvent)
	report func(gperr.Error)
	l      zerolog.Logger
}

func newNotifyWatcher(root string, matcher *Matcher, emit func(events.ChangeEvent), report func(gperr.Error), l zerolog.Logger) (*notifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	nw := &notifyWatcher{
		root:    root,
		w:       w,
		dirs:    F.NewMapOf[string, struct{}](),
		matcher: matcher,
		emit:    emit,
		report:  report,
		l:       l,
	}
	nw.dirs.Store(root, struct{}{})
	nw.watchTree(root, false)
	return nw, nil
}

func (w *notifyWatcher) Root() string    { return w.root }
func (w *notifyWatcher) Backend() string { return "fsnotify" }

// WatchList returns the directories currently watched.
func (w *notifyWatcher) WatchList() []string {
	list := make([]string, 0, w.dirs.Size())
	w.dirs.RangeAll(func(dir string, _ struct{}) {
		list = append(list, dir)
	})
	return list
}

func (w *notifyWatcher) close() error {
	w.dirs.Clear()
	return w.w.Close()
}

// run handles fsnotify events until ctx is done.
// It returns true when the root itself is gone.
func (w *notifyWatcher) run(ctx context.Context) (rootLost bool) {
	for {
		select {
		case <-ctx.Done():
			return false
		case fsEvent, ok := <-w.w.Events:
			if !ok {
				return false
			}
			if w.handle(fsEvent) {
				return true
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return false
			}
			if errors.Is(err, fsnotify.ErrClosed) {
				return false
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// events were lost, pick up directories we may have missed
				w.watchTree(w.root, false)
			}
			w.report(gperr.Wrap(err).Subject(w.root))
		}
	}
}

func (w *notifyWatcher) handle(fsEvent fsnotify.Event) (rootLost bool) {
	path := filepath.Clean(fsEvent.Name)
	if w.matcher.Match(w.root, path) {
		return false
	}
	now := time.Now()

	switch {
	case fsEvent.Has(fsnotify.Create):
		info, err := os.Lstat(path)
		isDir := err == nil && info.IsDir()
		w.emit(events.ChangeEvent{Root: w.root, Path: path, Kind: events.Added, IsDir: isDir, Time: now})
		if isDir {
			w.watchTree(path, true)
		}
	case fsEvent.Has(fsnotify.Remove):
		isDir := w.forget(path)
		if path == w.root {
			return true
		}
		w.emit(events.ChangeEvent{Root: w.root, Path: path, Kind: events.Removed, IsDir: isDir, Time: now})
	case fsEvent.Has(fsnotify.Rename):
		isDir := w.forget(path)
		if path == w.root {
			return true
		}
		// the destination, if watched, arrives as a Create right after
		w.emit(events.ChangeEvent{Root: w.root, Path: path, Kind: events.Renamed, IsDir: isDir, Time: now})
	case fsEvent.Has(fsnotify.Write):
		w.emit(events.ChangeEvent{Root: w.root, Path: path, Kind: events.Modified, Time: now})
	}
	return false
}

// watchTree adds a watch for dir and every directory below it.
//
// When synthesize is set, an Added event is emitted for every entry below dir,
// since they may have been created before the watch was in place.
func (w *notifyWatcher) watchTree(dir string, synthesize bool) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				w.report(gperr.ErrWatchSubtree.Subject(path).With(err))
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != dir && w.matcher.Match(w.root, path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, loaded := w.dirs.LoadOrStore(path, struct{}{}); !loaded {
				if err := w.w.Add(path); err != nil {
					w.dirs.Delete(path)
					if !errors.Is(err, fs.ErrNotExist) {
						w.report(gperr.ErrWatchSubtree.Subject(path).With(err))
					}
					return filepath.SkipDir
				}
				w.l.Trace().Str("dir", path).Msg("watching")
			}
		}
		if synthesize && path != dir {
			w.emit(events.ChangeEvent{Root: w.root, Path: path, Kind: events.Added, IsDir: d.IsDir(), Time: time.Now()})
		}
		return nil
	})
}

// forget drops the watches of path and everything below it,
// and reports whether path was a watched directory.
func (w *notifyWatcher) forget(path string) (wasDir bool) {
	prefix := path + string(filepath.Separator)
	removed := w.dirs.RemoveAll(func(dir string) bool {
		return dir == path || strings.HasPrefix(dir, prefix)
	})
	for _, dir := range removed {
		// the kernel drops watches of deleted directories by itself
		_ = w.w.Remove(dir)
	}
	if len(removed) > 0 && path != w.root {
		w.report(gperr.ErrWatchSubtree.Subject(path).Withf("directory gone, stopped %d watches", len(removed)))
	}
	return len(removed) > 0
}
