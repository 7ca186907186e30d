package models

import "time"

// SystemMetrics is a lightweight instrumentation snapshot served next to the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio              float64           `json:"cache_hit_ratio"`
	CacheHits                  uint64            `json:"cache_hits"`
	CacheMisses                uint64            `json:"cache_misses"`
	RequestsTotal              uint64            `json:"requests_total"`
	AverageRequestDurationMs   float64           `json:"average_request_duration_ms"`
	StoreCallCount             uint64            `json:"store_call_count"`
	AverageStoreCallDurationMs float64           `json:"average_store_call_duration_ms"`
	CheckIns                   map[string]uint64 `json:"check_ins"`
	DegradedDashboards         uint64            `json:"degraded_dashboards"`
	Goroutines                 int               `json:"goroutines"`
	GeneratedAt                time.Time         `json:"generated_at"`
}
