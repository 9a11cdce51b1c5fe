package models

import "time"

// MetricsSnapshot is a compact view of process counters.
type MetricsSnapshot struct {
	UptimeSeconds       int64     `json:"uptime_seconds"`
	RequestsTotal       uint64    `json:"requests_total"`
	CacheHitRatio       float64   `json:"cache_hit_ratio"`
	AttendanceMutations uint64    `json:"attendance_mutations"`
	FutureDateRefusals  uint64    `json:"future_date_refusals"`
	Submissions         uint64    `json:"submissions"`
	Goroutines          int       `json:"goroutines"`
	GeneratedAt         time.Time `json:"generated_at"`
}
