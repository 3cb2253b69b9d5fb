package main

import (
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/yusing/fswatch-forward/internal/common"
	"github.com/yusing/fswatch-forward/internal/config"
	"github.com/yusing/fswatch-forward/internal/config/types"
	"github.com/yusing/fswatch-forward/internal/metrics"
	. "github.com/yusing/fswatch-forward/internal/utils/testing"
)

// unreachableAddr returns a loopback address nothing listens on.
func unreachableAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	ExpectNoError(t, err)
	addr := l.Addr().String()
	l.Close()
	return addr
}

func testConfig(t *testing.T, roots ...string) *config.Config {
	t.Helper()
	value := types.DefaultConfig()
	value.WatchRoots = roots
	value.ForwardTo = unreachableAddr(t)
	value.Debounce = 50 * time.Millisecond
	value.Forward.BackoffInitial = 20 * time.Millisecond
	value.Forward.BackoffMax = 50 * time.Millisecond
	value.TimeoutShutdown = 10 * time.Second
	cfg, err := config.New(value)
	ExpectNoError(t, err)
	return cfg
}

// runs before TestRunShutdown, which shuts down the root task of the process
func TestRunMissingRoot(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	ExpectEqual(t, run(cfg, make(chan os.Signal)), 1)
}

func TestRunShutdown(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root)

	pidFile := filepath.Join(t.TempDir(), "fswatch.pid")
	common.PIDFile = pidFile
	t.Cleanup(func() { common.PIDFile = "" })

	sig := make(chan os.Signal, 1)
	exitCode := make(chan int, 1)
	go func() { exitCode <- run(cfg, sig) }()

	Eventually(t, 5*time.Second, func() bool {
		_, err := os.Stat(pidFile)
		return err == nil && testutil.ToFloat64(metrics.GetWatcherMetrics().WatchedRoots.With("fsnotify")) > 0
	}, "daemon did not start")

	// left queued, the remote is unreachable
	ExpectNoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	Eventually(t, 5*time.Second, func() bool {
		return testutil.ToFloat64(metrics.GetForwarderMetrics().QueueLength) > 0
	}, "event was not queued")

	start := time.Now()
	sig <- syscall.SIGTERM

	select {
	case code := <-exitCode:
		ExpectEqual(t, code, 0)
	case <-time.After(cfg.Value().TimeoutShutdown):
		t.Fatal("shutdown did not finish within the shutdown timeout")
	}
	// subtasks that do not finish are waited for 3s before giving up
	ExpectTrue(t, time.Since(start) < 2*time.Second)

	_, err := os.Stat(pidFile)
	ExpectTrue(t, os.IsNotExist(err))
}
