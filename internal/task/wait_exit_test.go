package task

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	. "github.com/yusing/fswatch-forward/internal/utils/testing"
)

func TestWaitExitOnTaskStop(t *testing.T) {
	t.Cleanup(testCleanup)

	errBoom := errors.New("boom")
	watched := RootTask("watched")
	go watched.Finish(errBoom)

	done := make(chan error, 1)
	go func() { done <- WaitExit(make(chan os.Signal), time.Second, watched) }()

	select {
	case err := <-done:
		ExpectError(t, errBoom, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitExit did not return")
	}
	select {
	case <-RootContextCanceled():
	default:
		t.Fatal("root context not canceled")
	}
}

func TestWaitExitOnSignal(t *testing.T) {
	t.Cleanup(testCleanup)

	watched := RootTask("watched", false)
	sig := make(chan os.Signal, 2)
	sig <- syscall.SIGHUP
	sig <- syscall.SIGTERM

	done := make(chan error, 1)
	go func() { done <- WaitExit(sig, time.Second, watched) }()

	select {
	case err := <-done:
		ExpectNoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitExit did not return")
	}
	select {
	case <-watched.Finished():
	default:
		t.Fatal("watched task not finished after shutdown")
	}
}
