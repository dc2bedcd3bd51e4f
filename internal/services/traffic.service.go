package services

import (
	"sync"
	"time"

	"nexamon/internal/models"
)

// responseTimeCap bounds the latency sample buffer used for the average.
const responseTimeCap = 1000

// TrafficTracker accumulates per-path, per-status and byte counters for
// every request/response pair passing through the server. All state is
// process-local and reset on restart.
type TrafficTracker struct {
	mu sync.Mutex

	totalRequests uint64
	totalBytesIn  uint64
	totalBytesOut uint64
	byEndpoint    map[string]uint64
	byStatus      map[int]uint64
	hourly        [24]uint64
	responseTimes []float64 // milliseconds, oldest first
}

func NewTrafficTracker() *TrafficTracker {
	return &TrafficTracker{
		byEndpoint:    make(map[string]uint64),
		byStatus:      make(map[int]uint64),
		responseTimes: make([]float64, 0, responseTimeCap),
	}
}

// RecordRequest counts an inbound request. contentLength comes from the
// request header; negative (absent/unparseable) is treated as zero.
func (t *TrafficTracker) RecordRequest(path string, contentLength int64, hour int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRequests++
	t.byEndpoint[path]++
	if hour >= 0 && hour < 24 {
		t.hourly[hour]++
	}
	if contentLength > 0 {
		t.totalBytesIn += uint64(contentLength)
	}
}

// RecordResponse counts a completed response. bytesOut is the number of
// bytes actually written, which may differ from the declared content length
// for streamed responses.
func (t *TrafficTracker) RecordResponse(status, bytesOut int, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byStatus[status]++
	if bytesOut > 0 {
		t.totalBytesOut += uint64(bytesOut)
	}

	if len(t.responseTimes) >= responseTimeCap {
		t.responseTimes = t.responseTimes[1:]
	}
	t.responseTimes = append(t.responseTimes, float64(elapsed.Microseconds())/1000.0)
}

// Snapshot returns a copy of all counters.
func (t *TrafficTracker) Snapshot() models.TrafficStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := models.TrafficStats{
		TotalRequests:       t.totalRequests,
		TotalBytesIn:        t.totalBytesIn,
		TotalBytesOut:       t.totalBytesOut,
		RequestsByEndpoint:  make(map[string]uint64, len(t.byEndpoint)),
		ResponsesByStatus:   make(map[int]uint64, len(t.byStatus)),
		HourlyRequests:      t.hourly,
		ResponseTimeSamples: len(t.responseTimes),
	}
	for k, v := range t.byEndpoint {
		stats.RequestsByEndpoint[k] = v
	}
	for k, v := range t.byStatus {
		stats.ResponsesByStatus[k] = v
	}

	if n := len(t.responseTimes); n > 0 {
		var sum float64
		for _, ms := range t.responseTimes {
			sum += ms
		}
		stats.AvgResponseTimeMs = sum / float64(n)
	}

	return stats
}
