package telemetry

import (
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

func TestObserveCycle(t *testing.T) {
	m := New()

	outcomes := []sensor.Outcome{
		{Kind: sensor.OutcomeOK},
		{Kind: sensor.OutcomeOK},
		{Kind: sensor.OutcomeFailed},
		{Kind: sensor.OutcomeNoData},
	}
	last := time.Unix(1735689603, 0)

	m.ObserveCycle(outcomes, 7, last, 1500*time.Millisecond)
	m.ObserveCycle(nil, 0, time.Time{}, time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(m.cycles), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.fetchOutcomes.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.fetchOutcomes.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.fetchOutcomes.WithLabelValues("no_data")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.fetchOutcomes.WithLabelValues("empty")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.measurements), 0)
	assert.InDelta(t, 1735689603, testutil.ToFloat64(m.lastReceived), 0, "zero time leaves the gauge untouched")
}

func TestHistorySizeAndBackups(t *testing.T) {
	m := New()

	m.SetHistorySize(42)
	m.ObserveBackup(nil)
	m.ObserveBackup(stderrors.New("disk full"))
	m.ObserveBackup(nil)

	assert.InDelta(t, 42, testutil.ToFloat64(m.historySize), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.backups.WithLabelValues(BackupOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.backups.WithLabelValues(BackupFailed)), 0)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.ObserveCycle(nil, 1, time.Time{}, time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(a.cycles), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.cycles), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetHistorySize(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, "ppgcollect_acquire_history_size 3")
	assert.Contains(t, text, `ppgcollect_acquire_fetch_outcomes_total{kind="empty"} 0`)
	assert.Contains(t, text, "ppgcollect_acquire_cycle_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}
