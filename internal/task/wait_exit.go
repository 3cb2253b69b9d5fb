package task

import (
	"os"
	"syscall"
	"time"
)

// WaitExit blocks until SIGINT or SIGTERM is received on sig, or until one of
// watched finishes on its own, then shuts down all tasks gracefully.
//
// SIGHUP is logged and ignored.
//
// It returns nil when exiting on a signal, otherwise the finish cause
// of the task that stopped.
func WaitExit(sig <-chan os.Signal, shutdownTimeout time.Duration, watched ...*Task) (cause error) {
	stopped := make(chan *Task, len(watched))
	for _, t := range watched {
		go func() {
			select {
			case <-t.Finished():
				stopped <- t
			case <-RootContextCanceled():
			}
		}()
	}

wait:
	for {
		select {
		case s := <-sig:
			if s == syscall.SIGHUP {
				logger.Info().Msg("received SIGHUP, reload is not supported, ignoring")
				continue
			}
			logger.Info().Str("signal", s.String()).Msg("shutting down")
			break wait
		case t := <-stopped:
			cause = t.FinishCause()
			logger.Error().Err(cause).Str("task", t.Name()).Msg("task stopped unexpectedly, shutting down")
			break wait
		}
	}

	_ = GracefulShutdown(shutdownTimeout)
	return cause
}
