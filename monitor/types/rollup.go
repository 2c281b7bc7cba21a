package types

import "time"

// AllAuthorities is the synthetic authority scope that aggregates samples
// across every configured authority.
const AllAuthorities = "all"

// StatsRecord holds the computed statistics for one set of samples.
// Low/High are the 10th and 90th percentiles (nearest-rank). Every field is
// zero, not absent, when the input set is empty so renderers never need to
// null-check.
type StatsRecord struct {
	SampleCount int `json:"sample_count"`

	AvgTotalTimeMs  float64 `json:"avg_total_time_ms"`
	LowTotalTimeMs  float64 `json:"low_total_time_ms"`
	HighTotalTimeMs float64 `json:"high_total_time_ms"`

	AvgRetrieveParseTimeMs  float64 `json:"avg_retrieve_plus_parse_time_ms"`
	LowRetrieveParseTimeMs  float64 `json:"low_retrieve_plus_parse_time_ms"`
	HighRetrieveParseTimeMs float64 `json:"high_retrieve_plus_parse_time_ms"`

	AvgNormalizationTimeMs  float64 `json:"avg_normalization_time_ms"`
	LowNormalizationTimeMs  float64 `json:"low_normalization_time_ms"`
	HighNormalizationTimeMs float64 `json:"high_normalization_time_ms"`

	AvgSizeBytes  float64 `json:"avg_size_bytes"`
	LowSizeBytes  float64 `json:"low_size_bytes"`
	HighSizeBytes float64 `json:"high_size_bytes"`
}

// BucketStat pairs a time-bucket label with the statistics of the samples
// falling in that bucket. Series always have a fixed length (24, 30 or 12)
// so chart axes stay stable.
type BucketStat struct {
	Label string      `json:"label"`
	Start time.Time   `json:"start"`
	Stats StatsRecord `json:"stats"`
}

// ActionRollup is the per-action leaf of the rollup hierarchy: one datatable
// record for the current reporting period plus the three trend series.
type ActionRollup struct {
	Datatable    StatsRecord  `json:"datatable"`
	Last24Hours  []BucketStat `json:"last_24_hours,omitempty"`
	Last30Days   []BucketStat `json:"last_30_days,omitempty"`
	Last12Months []BucketStat `json:"last_12_months,omitempty"`
}

// AuthorityRollup groups the action scopes for one authority scope.
type AuthorityRollup struct {
	Fetch      ActionRollup `json:"fetch"`
	Search     ActionRollup `json:"search"`
	AllActions ActionRollup `json:"all_actions"`
}

// PerformanceData is the full computed rollup: authority scope (each
// configured authority plus AllAuthorities) mapped to its action rollups.
// It is derived state, safe to discard and rebuild at any time.
type PerformanceData struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Authorities map[string]*AuthorityRollup `json:"authorities"`
}

// SystemMetrics is a snapshot of monitor-process and host resource usage.
type SystemMetrics struct {
	Timestamp        time.Time `json:"timestamp"`
	CPUUsage         float64   `json:"cpu_usage"`
	MemoryUsageMB    float64   `json:"memory_usage_mb"`
	MemoryPercent    float64   `json:"memory_percent"`
	NetworkBytesSent int64     `json:"network_bytes_sent"`
	NetworkBytesRecv int64     `json:"network_bytes_recv"`
	OpenConnections  int64     `json:"open_connections"`
	GoroutineCount   int       `json:"goroutine_count"`
}
