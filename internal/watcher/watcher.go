package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yusing/fswatch-forward/internal/common"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/logging"
	"github.com/yusing/fswatch-forward/internal/metrics"
	"github.com/yusing/fswatch-forward/internal/task"
	F "github.com/yusing/fswatch-forward/internal/utils/functional"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

type (
	Options struct {
		Roots        []string
		Debounce     time.Duration
		PollInterval time.Duration
		// ForcePolling uses the polling backend for every root.
		ForcePolling bool
		Ignore       *Matcher
	}

	// Engine watches a fixed set of directory trees and delivers
	// coalesced change events in batch order.
	Engine struct {
		task  *task.Task
		opts  Options
		roots F.Map[string, rootWatcher]

		raw    chan events.ChangeEvent
		rawErr chan gperr.Error

		eventCh chan events.ChangeEvent
		errCh   chan gperr.Error

		queue *events.EventQueue
		wg    sync.WaitGroup
		l     zerolog.Logger
	}

	rootWatcher interface {
		Root() string
		Backend() string
		// run blocks until ctx is done or the root is gone.
		run(ctx context.Context) (rootLost bool)
		close() error
	}
)

const (
	rawEventBufSize = 1024
	eventBufSize    = 256
	errBufSize      = 16
)

var ErrNotADirectory = gperr.New("not a directory")

// Start validates every root and starts watching all of them.
//
// If any root is missing, not a directory or unreadable, an ErrConfiguration
// error listing every bad root is returned and nothing is watched.
func Start(parent task.Parent, opts Options) (*Engine, gperr.Error) {
	roots, err := validateRoots(opts.Roots)
	if err != nil {
		return nil, err
	}
	opts.Roots = roots
	if opts.Debounce <= 0 {
		opts.Debounce = common.DebounceDefault
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = common.PollIntervalDefault
	}

	e := &Engine{
		opts:    opts,
		roots:   F.NewMapOf[string, rootWatcher](),
		raw:     make(chan events.ChangeEvent, rawEventBufSize),
		rawErr:  make(chan gperr.Error, errBufSize),
		eventCh: make(chan events.ChangeEvent, eventBufSize),
		errCh:   make(chan gperr.Error, errBufSize),
		l:       logging.With().Str("module", "watcher").Logger(),
	}
	e.task = parent.Subtask("watcher")

	backends := make([]rootWatcher, 0, len(roots))
	for _, root := range roots {
		w, err := e.newRootWatcher(root)
		if err != nil {
			for _, w := range backends {
				_ = w.close()
			}
			e.task.Finish(err)
			return nil, gperr.ErrConfiguration.With(gperr.Wrap(err).Subject(root))
		}
		backends = append(backends, w)
	}

	e.queue = events.NewEventQueue(e.task, opts.Debounce, e.deliver, e.onError)
	e.queue.Start(e.raw, e.rawErr)

	for _, w := range backends {
		e.roots.Store(w.Root(), w)
		metrics.GetWatcherMetrics().WatchedRoots.With(w.Backend()).Inc()
		e.wg.Add(1)
		go e.runRoot(w)
		e.l.Info().Str("root", w.Root()).Str("backend", w.Backend()).Msg("watching")
	}

	e.task.OnCancel("stop backends", func() {
		e.wg.Wait()
		e.roots.RangeAll(func(root string, w rootWatcher) {
			if err := w.close(); err != nil {
				e.l.Err(err).Str("root", root).Msg("failed to close watcher")
			}
			metrics.GetWatcherMetrics().WatchedRoots.With(w.Backend()).Dec()
		})
		e.roots.Clear()
	})
	e.task.OnFinished("close channels", func() {
		close(e.eventCh)
		close(e.errCh)
	})
	go func() {
		<-e.task.Context().Done()
		e.task.Finish(e.task.FinishCause())
	}()
	return e, nil
}

func validateRoots(roots []string) ([]string, gperr.Error) {
	if len(roots) == 0 {
		return nil, gperr.ErrConfiguration.Withf("no watch roots")
	}
	b := gperr.NewBuilder("watch roots")
	seen := make(map[string]struct{}, len(roots))
	valid := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			b.Add(gperr.Wrap(err).Subject(root))
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			b.Add(gperr.Wrap(err).Subject(root))
			continue
		}
		if !info.IsDir() {
			b.Add(ErrNotADirectory.Subject(root))
			continue
		}
		if _, err := os.ReadDir(abs); err != nil {
			b.Add(gperr.Wrap(err).Subject(root))
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		valid = append(valid, abs)
	}
	if b.HasError() {
		return nil, gperr.ErrConfiguration.With(b.Error())
	}
	return valid, nil
}

func (e *Engine) newRootWatcher(root string) (rootWatcher, error) {
	l := e.l.With().Str("root", root).Logger()
	if !e.opts.ForcePolling {
		fsType := networkFS(root)
		if fsType == "" {
			w, err := newNotifyWatcher(root, e.opts.Ignore, e.emit, e.report, l)
			if err == nil {
				return w, nil
			}
			l.Warn().Err(err).Msg("native watcher unavailable, falling back to polling")
		} else {
			l.Info().Str("fs", fsType).Msg("network filesystem, using polling")
		}
	}
	return newPollWatcher(root, e.opts.PollInterval, e.opts.Ignore, e.emit, e.report, l)
}

func (e *Engine) runRoot(w rootWatcher) {
	defer e.wg.Done()
	defer func() {
		if err := recover(); err != nil {
			e.onError(gperr.Errorf("recovered panic: %v", err).Subject(w.Root()))
			go e.task.Finish(gperr.ErrUnhandledFault.Subject(w.Root()))
		}
	}()

	if !w.run(e.task.Context()) {
		return
	}

	e.roots.Delete(w.Root())
	metrics.GetWatcherMetrics().WatchedRoots.With(w.Backend()).Dec()
	if err := w.close(); err != nil {
		e.l.Err(err).Str("root", w.Root()).Msg("failed to close watcher")
	}
	e.onError(gperr.ErrWatchSubtree.Subject(w.Root()).Withf("watch root is gone"))

	if e.roots.Size() == 0 {
		e.onError(gperr.ErrAllRootsLost)
		go e.task.Finish(gperr.ErrAllRootsLost)
	}
}

// emit hands a raw event to the event queue.
func (e *Engine) emit(ev events.ChangeEvent) {
	select {
	case e.raw <- ev:
	case <-e.task.Context().Done():
	}
}

// report hands a non-fatal error to the event queue, so it is
// logged in order with the events around it.
func (e *Engine) report(err gperr.Error) {
	select {
	case e.rawErr <- err:
	case <-e.task.Context().Done():
	}
}

func (e *Engine) deliver(batch []events.ChangeEvent) {
	m := metrics.GetWatcherMetrics()
	for _, ev := range batch {
		m.Events.With(ev.Kind.String()).Inc()
		if e.l.GetLevel() <= zerolog.DebugLevel {
			e.l.Debug().Stringer("kind", ev.Kind).Str("path", ev.Path).Msg("change")
		}
		select {
		case e.eventCh <- ev:
		case <-e.task.Context().Done():
			return
		}
	}
}

func (e *Engine) onError(err gperr.Error) {
	metrics.GetWatcherMetrics().Errors.Inc()
	if errors.Is(err, gperr.ErrAllRootsLost) {
		gperr.LogError("watcher stopped", err, &e.l)
	} else {
		gperr.LogWarn("watch error", err, &e.l)
	}
	select {
	case e.errCh <- err:
	default:
	}
}

// Events returns the channel of coalesced change events.
// It is closed when the engine stops.
func (e *Engine) Events() <-chan events.ChangeEvent {
	return e.eventCh
}

// Errors returns the channel of watch errors. Sends never block,
// errors are dropped when nobody is reading. It is closed when the engine stops.
func (e *Engine) Errors() <-chan gperr.Error {
	return e.errCh
}

// Task returns the engine task. Finish it to stop watching.
func (e *Engine) Task() *task.Task {
	return e.task
}

// Roots returns the watched roots mapped to the backend watching them.
func (e *Engine) Roots() map[string]string {
	roots := make(map[string]string, e.roots.Size())
	e.roots.RangeAll(func(root string, w rootWatcher) {
		roots[root] = w.Backend()
	})
	return roots
}
