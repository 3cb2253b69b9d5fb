package task

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/yusing/fswatch-forward/internal/logging"
	F "github.com/yusing/fswatch-forward/internal/utils/functional"
)

var ErrProgramExiting = errors.New("program exiting")

var logger = logging.With().Str("module", "task").Logger()

var (
	root     = newRoot()
	allTasks = F.NewSet[*Task]()
)

func testCleanup() {
	root = newRoot()
	allTasks.Clear()
}

// RootTask returns a new Task with the given name, derived from the root context.
func RootTask(name string, needFinish ...bool) *Task {
	return root.Subtask(name, needFinish...)
}

func newRoot() *Task {
	t := &Task{name: "root", finished: make(chan struct{})}
	t.ctx, t.cancel = context.WithCancelCause(context.Background())
	return t
}

func RootContextCanceled() <-chan struct{} {
	return root.ctx.Done()
}

// GracefulShutdown cancels the root task and waits for all tasks to finish,
// up to the given timeout.
//
// If the timeout is exceeded, it logs the tasks that were still running
// and returns context.DeadlineExceeded.
func GracefulShutdown(timeout time.Duration) (err error) {
	go root.Finish(ErrProgramExiting)

	after := time.After(timeout)
	select {
	case <-root.finished:
		return nil
	case <-after:
		logger.Warn().Strs("tasks", DebugTaskList()).Msgf("Timeout waiting for these %d tasks to finish", allTasks.Size())
		return context.DeadlineExceeded
	}
}

// DebugTaskList returns the names of all running tasks, sorted.
func DebugTaskList() []string {
	l := make([]string, 0, allTasks.Size())

	allTasks.RangeAll(func(t *Task) {
		l = append(l, t.name)
	})

	slices.Sort(l)
	return l
}

// debug only.
func (t *Task) listChildren() []string {
	var children []string
	allTasks.Range(func(child *Task) bool {
		if child.parent == t {
			children = append(children, strings.TrimPrefix(child.name, t.name+"."))
		}
		return true
	})
	return children
}
