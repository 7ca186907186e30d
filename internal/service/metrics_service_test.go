package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoria-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/dashboard/reports", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/dashboard/reports", http.StatusOK, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveStoreCall("list_sessions", nil, 10*time.Millisecond)
	m.ObserveStoreCall("list_attendance", errors.New("boom"), 30*time.Millisecond)
	m.RecordCheckIn(models.OutcomeRecorded, nil)
	m.RecordCheckIn(models.OutcomeAlreadyRecordedToday, nil)
	m.RecordCheckIn("", errors.New("write failed"))
	m.RecordDegradedDashboard()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.StoreCallCount)
	assert.InDelta(t, 20.0, snap.AverageStoreCallDurationMs, 0.001)
	assert.Equal(t, map[string]uint64{"recorded": 1, "already_recorded_today": 1, "write_failed": 1}, snap.CheckIns)
	assert.Equal(t, uint64(1), snap.DegradedDashboards)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceExposesPrometheus(t *testing.T) {
	m := NewMetricsService()
	m.RecordCheckIn(models.OutcomeRecorded, nil)
	m.ObserveStoreCall("create_attendance", nil, time.Millisecond)
	m.RecordJob("dashboard-invalidation", "done")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `attendance_checkins_total{outcome="recorded"} 1`)
	assert.Contains(t, body, `store_call_duration_seconds_count{operation="create_attendance",result="ok"} 1`)
	assert.Contains(t, body, `background_jobs_total{outcome="done",queue="dashboard-invalidation"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.ObserveStoreCall("list_users", nil, time.Millisecond)
		m.RecordCheckIn(models.OutcomeRecorded, nil)
		m.RecordDegradedDashboard()
		m.RecordJob("q", "done")
	})
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(CacheServiceParams{Repo: repo, Enabled: false})
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(ctx, DashboardKey("admin"), map[string]int{"a": 1}, 0))
	assert.Equal(t, 0, repo.size())

	var dest map[string]int
	hit, err := svc.Get(ctx, DashboardKey("admin"), &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewCacheService(CacheServiceParams{Repo: repo, Metrics: metrics, TTL: time.Minute, Enabled: true})
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, DashboardKey("admin"), map[string]int{"a": 1}, 0))
	require.NoError(t, repo.Set(ctx, "unrelated", 1, 0))

	var dest map[string]int
	hit, err := svc.Get(ctx, DashboardKey("admin"), &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, dest["a"])

	require.NoError(t, svc.InvalidateDashboards(ctx))
	assert.Equal(t, 1, repo.size())

	hit, err = svc.Get(ctx, DashboardKey("admin"), &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
}

func TestCacheServiceSurfacesRepositoryErrors(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(CacheServiceParams{Repo: repo, TTL: time.Minute, Enabled: true})

	var dest map[string]int
	hit, err := svc.Get(context.Background(), DashboardKey("admin"), &dest)
	assert.False(t, hit)
	assert.EqualError(t, err, "connection reset")
}
