package events

import (
	"fmt"
	"time"

	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/task"
)

type (
	// EventQueue batches raw events for flushInterval, coalesces each batch
	// and hands it to onFlush.
	EventQueue struct {
		task          *task.Task
		queue         []ChangeEvent
		held          *ChangeEvent
		ticker        *time.Ticker
		flushInterval time.Duration
		onFlush       OnFlushFunc
		onError       OnErrorFunc
	}
	OnFlushFunc = func(events []ChangeEvent)
	OnErrorFunc = func(err gperr.Error)
)

const (
	eventQueueCapacity = 64
	// a batch is flushed early once it reaches this size
	eventQueueMaxBatch = 4096
)

// NewEventQueue returns a new EventQueue with the given
// parent task, flushInterval, onFlush and onError.
//
// onFlush is called from the queue goroutine, in order, with a non-empty
// coalesced batch. onError is called for every error received from errCh
// and for a recovered panic in onFlush.
//
// If the task is canceled, events in the queue are discarded.
func NewEventQueue(parent task.Parent, flushInterval time.Duration, onFlush OnFlushFunc, onError OnErrorFunc) *EventQueue {
	if flushInterval <= 0 {
		flushInterval = time.Millisecond
	}
	return &EventQueue{
		task:          parent.Subtask("event_queue"),
		queue:         make([]ChangeEvent, 0, eventQueueCapacity),
		flushInterval: flushInterval,
		onFlush:       onFlush,
		onError:       onError,
	}
}

// Start consumes eventCh and errCh until the task is canceled or eventCh is closed.
// Remaining events are flushed when eventCh is closed.
func (e *EventQueue) Start(eventCh <-chan ChangeEvent, errCh <-chan gperr.Error) {
	e.ticker = time.NewTicker(e.flushInterval)
	go func() {
		defer e.task.Finish(nil)
		defer e.ticker.Stop()
		for {
			select {
			case <-e.task.Context().Done():
				return
			case <-e.ticker.C:
				e.flush(true)
			case event, ok := <-eventCh:
				if !ok {
					e.flush(false)
					return
				}
				e.queue = append(e.queue, event)
				if len(e.queue) >= eventQueueMaxBatch {
					e.flush(true)
				}
			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				if err != nil {
					e.onError(err)
				}
			}
		}
	}()
}

// Wait waits for the queue goroutine to exit.
func (e *EventQueue) Wait() {
	<-e.task.Finished()
}

func (e *EventQueue) flush(holdTrailingRename bool) {
	if len(e.queue) == 0 && e.held == nil {
		return
	}
	raw := e.queue
	if e.held != nil {
		raw = append([]ChangeEvent{*e.held}, raw...)
		e.held = nil
		// a held rename source is only carried over once
		holdTrailingRename = holdTrailingRename && len(raw) > 1
	}
	e.queue = make([]ChangeEvent, 0, eventQueueCapacity)

	batch, held := Coalesce(raw, holdTrailingRename)
	e.held = held
	if len(batch) == 0 {
		return
	}
	defer func() {
		if err := recover(); err != nil {
			e.onError(gperr.New(fmt.Sprintf("recovered panic in onFlush: %v", err)).Subject(e.task.Name()))
		}
	}()
	e.onFlush(batch)
}

// Coalesce merges a batch of raw events, keeping the order of first occurrence:
//
//   - a rename source immediately followed by Added under the same root
//     becomes one Renamed event
//   - any other rename source becomes Removed, unless it is the last event
//     and holdTrailingRename is set, in which case it is returned as held
//   - Added or Modified for a path is dropped when the previous kept
//     event for that path is Added or Modified
//   - Removed for a path is dropped when the previous kept event for that
//     path is Removed
func Coalesce(raw []ChangeEvent, holdTrailingRename bool) (out []ChangeEvent, held *ChangeEvent) {
	out = make([]ChangeEvent, 0, len(raw))
	last := make(map[string]Kind, len(raw))

	for i := 0; i < len(raw); i++ {
		ev := raw[i]
		if ev.IsRenameSource() {
			switch {
			case i+1 < len(raw) && raw[i+1].Kind == Added && raw[i+1].Root == ev.Root:
				next := raw[i+1]
				i++
				ev = ChangeEvent{
					Root:    next.Root,
					Path:    next.Path,
					OldPath: ev.Path,
					Kind:    Renamed,
					IsDir:   next.IsDir,
					Time:    next.Time,
				}
			case i == len(raw)-1 && holdTrailingRename:
				held = &ev
				continue
			default:
				ev.Kind = Removed
			}
		}

		switch ev.Kind {
		case Added, Modified:
			if k, ok := last[ev.Path]; ok && (k == Added || k == Modified) {
				continue
			}
		case Removed:
			if k, ok := last[ev.Path]; ok && k == Removed {
				continue
			}
		case Renamed:
			last[ev.OldPath] = Removed
		}
		out = append(out, ev)
		last[ev.Path] = ev.Kind
	}
	return out, held
}
