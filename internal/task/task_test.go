package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/yusing/fswatch-forward/internal/utils/testing"
)

func testTask() *Task {
	return RootTask("test", false)
}

func TestChildTaskCancellation(t *testing.T) {
	t.Cleanup(testCleanup)

	parent := testTask()
	child := parent.Subtask("child")

	go func() {
		defer child.Finish(nil)
		<-child.Context().Done()
	}()

	parent.cancel(nil) // should also cancel child

	select {
	case <-child.Finished():
		ExpectError(t, context.Canceled, child.Context().Err())
	case <-time.After(time.Second):
		t.Fatal("subTask context was not canceled as expected")
	}
}

func TestTaskOnCancelOnFinished(t *testing.T) {
	t.Cleanup(testCleanup)
	task := testTask()

	var shouldTrueOnCancel atomic.Bool
	var shouldTrueOnFinish atomic.Bool

	task.OnCancel("", func() {
		shouldTrueOnCancel.Store(true)
	})
	task.OnFinished("", func() {
		shouldTrueOnFinish.Store(true)
	})

	ExpectFalse(t, shouldTrueOnFinish.Load())
	task.Finish(nil)
	ExpectTrue(t, shouldTrueOnCancel.Load())
	ExpectTrue(t, shouldTrueOnFinish.Load())
}

func TestOnFinishedWaitsForSubtasks(t *testing.T) {
	t.Cleanup(testCleanup)
	parent := testTask()
	child := parent.Subtask("child")

	var childDone atomic.Bool
	go func() {
		<-child.Context().Done()
		time.Sleep(20 * time.Millisecond)
		childDone.Store(true)
		child.Finish(nil)
	}()

	var sawChildDone atomic.Bool
	parent.OnFinished("check child", func() {
		sawChildDone.Store(childDone.Load())
	})
	parent.Finish("done")
	ExpectTrue(t, sawChildDone.Load())
}

func TestFinishCause(t *testing.T) {
	t.Cleanup(testCleanup)
	task := testTask()
	cause := errors.New("fatal")
	task.Finish(cause)
	ExpectError(t, cause, task.FinishCause())
}

func TestCommonFlowWithGracefulShutdown(t *testing.T) {
	t.Cleanup(testCleanup)
	task := testTask()

	var finished atomic.Bool

	task.OnFinished("", func() {
		finished.Store(true)
	})

	go func() {
		defer task.Finish(nil)
		<-task.Context().Done()
	}()

	ExpectNoError(t, GracefulShutdown(1*time.Second))
	ExpectTrue(t, finished.Load())

	<-root.finished
	ExpectError(t, context.Canceled, task.Context().Err())
	ExpectError(t, ErrProgramExiting, task.FinishCause())
}

func TestTimeoutOnGracefulShutdown(t *testing.T) {
	t.Cleanup(testCleanup)
	_ = RootTask("never finishes", true)

	ExpectError(t, context.DeadlineExceeded, GracefulShutdown(time.Millisecond))
}

func TestFinishMultipleCalls(t *testing.T) {
	t.Cleanup(testCleanup)
	task := testTask()
	var wg sync.WaitGroup
	wg.Add(5)
	for range 5 {
		go func() {
			defer wg.Done()
			task.Finish(nil)
		}()
	}
	wg.Wait()
}
