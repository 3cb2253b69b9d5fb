package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/logging"
	"github.com/yusing/fswatch-forward/internal/task"
)

func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// StartServer serves /metrics on addr until parent is canceled.
func StartServer(parent task.Parent, addr string) (net.Addr, gperr.Error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, gperr.Wrap(err).Subject("metrics server")
	}
	t := parent.Subtask("metrics_server")
	srv := &http.Server{
		Handler:           NewHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		defer t.Finish(nil)
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			gperr.LogError("metrics server stopped", err)
		}
	}()
	t.OnCancel("shutdown", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	logging.Info().Str("addr", l.Addr().String()).Msg("metrics server started")
	return l.Addr(), nil
}
