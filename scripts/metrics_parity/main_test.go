package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoria-api/internal/aggregate"
)

func reportsServer(t *testing.T, metrics aggregate.Metrics, degraded bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/dashboard/reports" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		meta := map[string]interface{}{"cache_hit": false}
		if degraded {
			meta["degraded"] = true
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"metrics": metrics},
			"meta": meta,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompareTargetMatches(t *testing.T) {
	metrics := aggregate.Empty()
	left := reportsServer(t, metrics, false)
	right := reportsServer(t, metrics, false)

	res := compareTarget(http.DefaultClient, left.URL+"/api/v1", right.URL+"/api/v1", target{Name: "all"})
	require.NoError(t, res.Err)
	assert.Empty(t, res.Diffs)
}

func TestCompareTargetReportsDiffs(t *testing.T) {
	a := aggregate.Empty()
	b := aggregate.Empty()
	b.TotalEvents = 3
	b.KPIs.UniqueAttendees = 2

	res := compareTarget(http.DefaultClient, reportsServer(t, a, false).URL+"/api/v1", reportsServer(t, b, false).URL+"/api/v1", target{Name: "all"})
	require.NoError(t, res.Err)
	require.Len(t, res.Diffs, 2)
	assert.Contains(t, res.Diffs[0], "totalEvents")
	assert.Contains(t, res.Diffs[1], "kpis")
}

func TestCompareTargetRejectsDegraded(t *testing.T) {
	metrics := aggregate.Empty()
	res := compareTarget(http.DefaultClient, reportsServer(t, metrics, false).URL+"/api/v1", reportsServer(t, metrics, true).URL+"/api/v1", target{Name: "all"})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "right: served degraded metrics")
}

func TestLoadTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"name":"may","dateStart":"2024-05-01","critical":true}]}`), 0o600))

	targets, err := loadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "2024-05-01", targets[0].DateStart)
	assert.True(t, targets[0].Critical)

	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[]}`), 0o600))
	_, err = loadTargets(path)
	assert.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, []comparison{{Target: target{Name: "may", Critical: true}, Diffs: []string{"totalEvents: 1 != 2"}}})
	assert.Contains(t, buf.String(), "[DIFF] may (critical: true)")
	assert.Contains(t, buf.String(), "totalEvents: 1 != 2")
}
