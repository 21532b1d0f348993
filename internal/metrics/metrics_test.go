package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/clash/internal/resolve"
)

func TestExecutorSignals(t *testing.T) {
	m := New()
	m.PassFinished(resolve.Stats{Executed: 5, Skipped: 2, Submitted: 7, MaxDepth: 3}, 2*time.Millisecond)
	m.PassFinished(resolve.Stats{Executed: 1, Submitted: 1, MaxDepth: 1}, time.Millisecond)
	m.NodeFaulted("damage")
	m.Runaway()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passes))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.nodes.WithLabelValues("executed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.nodes.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.faults.WithLabelValues("damage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runaways))
	assert.Equal(t, 1, testutil.CollectAndCount(m.passDuration))
}

func TestSequencerSignals(t *testing.T) {
	m := New()
	m.Enqueued("damage")
	m.Enqueued("damage")
	m.Started("damage", 0)
	m.Finished("damage", 450*time.Millisecond, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.animations.WithLabelValues("damage", "enqueued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.animations.WithLabelValues("damage", "finished")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.animDuration))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.BattleOpened()
	m.BattleOpened()
	m.BattleClosed()
	m.RecordHTTPRequest("GET", "/api/skills", 200, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "clash_active_battles 1")
	assert.Contains(t, string(body), "clash_executor_passes_total 0")
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), `clash_http_requests_total{method="GET",path="/api/skills",status="200"} 1`)
}
