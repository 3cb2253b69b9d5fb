package metrics

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/yusing/fswatch-forward/internal/task"
	. "github.com/yusing/fswatch-forward/internal/utils/testing"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(GetWatcherMetrics().Events.With("added"))
	GetWatcherMetrics().Events.With("added").Inc()
	ExpectEqual(t, testutil.ToFloat64(GetWatcherMetrics().Events.With("added")), before+1)

	before = testutil.ToFloat64(GetForwarderMetrics().Dropped)
	GetForwarderMetrics().Dropped.Add(3)
	ExpectEqual(t, testutil.ToFloat64(GetForwarderMetrics().Dropped), before+3)
}

func TestServer(t *testing.T) {
	parent := task.RootTask("test_metrics", false)
	t.Cleanup(func() { parent.Finish(nil) })

	addr, err := StartServer(parent, "127.0.0.1:0")
	ExpectNoError(t, err)

	resp, httpErr := http.Get("http://" + addr.String() + "/metrics")
	ExpectNoError(t, httpErr)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	ExpectEqual(t, resp.StatusCode, http.StatusOK)
	ExpectTrue(t, strings.Contains(string(body), "fswatch_forwarder_queue_length"))
}
