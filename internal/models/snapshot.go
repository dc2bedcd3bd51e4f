package models

// SystemSnapshot is a single point-in-time system measurement.
// Snapshots are immutable once built: they are appended to history or
// discarded, never mutated.
type SystemSnapshot struct {
	Timestamp        int64      `json:"timestamp"` // milliseconds since epoch
	CPUUsagePercent  float64    `json:"cpu_usage_percent"`
	MemoryUsedBytes  uint64     `json:"memory_used_bytes"`
	MemoryTotalBytes uint64     `json:"memory_total_bytes"`
	UptimeSeconds    uint64     `json:"uptime_seconds"`
	ProcessCount     uint64     `json:"process_count,omitempty"`
	DiskUsage        *DiskUsage `json:"disk_usage,omitempty"`
	// Degraded marks a snapshot whose fields could not be fully acquired
	// and were zeroed/placeholder-filled instead.
	Degraded bool `json:"degraded,omitempty"`
}

// DiskUsage holds usage of the root filesystem.
type DiskUsage struct {
	UsedBytes  uint64 `json:"used_bytes"`
	TotalBytes uint64 `json:"total_bytes"`
}
