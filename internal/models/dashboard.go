package models

import "time"

// DashboardStats is the admin overview.
type DashboardStats struct {
	Universities   int            `json:"universities"`
	Programs       int            `json:"programs"`
	Scholarships   int            `json:"scholarships"`
	Students       int            `json:"students"`
	Applications   int            `json:"applications"`
	ByStatus       map[string]int `json:"applications_by_status"`
	GeneratedAt    time.Time      `json:"generated_at"`
	PendingReviews int            `json:"pending_reviews"`
	System         *SystemMetrics `json:"system,omitempty"`
}

// SystemMetrics is a lightweight snapshot of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	TranslationsDone         uint64    `json:"translations_done"`
	TranslationsFailed       uint64    `json:"translations_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
