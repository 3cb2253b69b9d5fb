//go:build pprof

package main

import (
	"net/http"
	_ "net/http/pprof"
	"runtime"

	"github.com/yusing/fswatch-forward/internal/common"
	"github.com/yusing/fswatch-forward/internal/logging"
)

func init() {
	runtime.GOMAXPROCS(2)
	addr := common.GetEnvString("PPROF_ADDR", "127.0.0.1:7777")
	go func() {
		logging.Err(http.ListenAndServe(addr, nil)).Msg("pprof server stopped") //nolint:gosec
	}()
}
