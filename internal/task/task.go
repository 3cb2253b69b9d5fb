package task

import (
	"context"
	"sync"
	"time"
)

type (
	// Task controls objects' lifetime.
	//
	// Objects that use a task should call Finish when they stop,
	// and should stop when the task's context is canceled.
	//
	// When passing a Task object to another component,
	// it should be a subtask of the current task.
	Task struct {
		name string

		parent     *Task
		needFinish bool

		ctx    context.Context
		cancel context.CancelCauseFunc

		children     uint32
		childrenDone chan struct{}

		callbacks  map[*Callback]struct{}
		onCancelWg sync.WaitGroup

		finished     chan struct{}
		finishCalled bool

		mu sync.Mutex
	}
	Callback struct {
		fn    func()
		about string
	}
	// Parent is the subset of Task given to components that
	// create their own subtasks.
	Parent interface {
		Context() context.Context
		Subtask(name string, needFinish ...bool) *Task
		Name() string
	}
)

// taskTimeout bounds how long Finish waits for subtasks.
var taskTimeout = 3 * time.Second

// Name returns the name of the task.
func (t *Task) Name() string {
	return t.name
}

func (t *Task) String() string {
	return t.name
}

// Context returns the context associated with the task. This context is
// canceled when Finish of the task is called, or parent task is canceled.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Finished returns a channel that is closed when the task is finished,
// i.e. its OnCancel and OnFinished callbacks have returned.
func (t *Task) Finished() <-chan struct{} {
	return t.finished
}

// FinishCause returns the reason / error that caused the task to be finished.
func (t *Task) FinishCause() error {
	return context.Cause(t.ctx)
}

// Parent returns the parent task of the current task.
func (t *Task) Parent() *Task {
	return t.parent
}

// OnFinished calls fn when the task is canceled and all subtasks are finished.
func (t *Task) OnFinished(about string, fn func()) {
	t.addCallback(about, fn)
}

// OnCancel calls fn as soon as the task is canceled, without waiting for subtasks.
func (t *Task) OnCancel(about string, fn func()) {
	t.onCancelWg.Add(1)
	go func() {
		defer t.onCancelWg.Done()
		<-t.ctx.Done()
		t.invokeWithRecover(fn, about)
	}()
}

// Finish cancels the task and all its subtasks, then waits for
// the subtasks and the callbacks of the task to finish.
//
// It is safe to call this method multiple times.
func (t *Task) Finish(reason any) {
	t.mu.Lock()
	if t.finishCalled {
		t.mu.Unlock()
		<-t.finished
		return
	}
	t.finishCalled = true
	t.mu.Unlock()

	t.cancel(fmtCause(reason))
	t.finish()
}

func (t *Task) finish() {
	t.onCancelWg.Wait()
	t.mu.Lock()
	childrenDone := t.childrenDone
	t.mu.Unlock()
	if !waitWithTimeout(childrenDone) {
		logger.Warn().
			Str("task", t.name).
			Strs("subtasks", t.listChildren()).
			Msg("timeout waiting for subtasks to finish")
	}
	t.runCallbacks()
	close(t.finished)
	if t.parent != nil {
		t.parent.subChildCount()
	}
	allTasks.Remove(t)
	logger.Trace().Str("task", t.name).Msg("task finished: " + t.FinishCause().Error())
}

// Subtask returns a new subtask with the given name, derived from the parent's context.
//
// If needFinish is false (default true), the subtask finishes by itself
// once its context is canceled. Otherwise Finish must be called.
func (t *Task) Subtask(name string, needFinish ...bool) *Task {
	nf := len(needFinish) == 0 || needFinish[0]

	ctx, cancel := context.WithCancelCause(t.ctx)
	child := &Task{
		name:       name,
		parent:     t,
		needFinish: nf,
		ctx:        ctx,
		cancel:     cancel,
		finished:   make(chan struct{}),
	}
	if t != root {
		child.name = t.name + "." + name
	}
	t.addChildCount()
	allTasks.Add(child)

	if !nf {
		go func() {
			<-child.ctx.Done()
			child.Finish(child.FinishCause())
		}()
	}

	logger.Trace().Str("task", child.name).Msg("task started")
	return child
}
