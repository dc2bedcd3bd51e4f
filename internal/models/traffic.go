package models

// TrafficStats is a point-in-time copy of the request counters accumulated
// since process start. Counters only ever grow; nothing is persisted.
type TrafficStats struct {
	TotalRequests       uint64            `json:"total_requests"`
	TotalBytesIn        uint64            `json:"total_bytes_in"`
	TotalBytesOut       uint64            `json:"total_bytes_out"`
	RequestsByEndpoint  map[string]uint64 `json:"requests_by_endpoint"`
	ResponsesByStatus   map[int]uint64    `json:"responses_by_status"`
	HourlyRequests      [24]uint64        `json:"hourly_requests"`
	AvgResponseTimeMs   float64           `json:"avg_response_time_ms"`
	ResponseTimeSamples int               `json:"response_time_samples"`
}
