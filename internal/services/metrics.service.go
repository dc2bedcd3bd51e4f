package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexamon/internal/models"
	"nexamon/internal/store"
)

// Metric event types published to observers.
const (
	EventMetricUpdated  = "metric_updated"
	EventMetricsCleared = "metrics_cleared"
)

// MetricEvent is a change notification for the named-metric map.
type MetricEvent struct {
	Type  string      `json:"type"`
	Name  string      `json:"name,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// MetricsService is the aggregation facade: it mediates all snapshot
// creation, hands results to the history store, and owns the named-metric
// map.
type MetricsService struct {
	sampler Sampler
	store   store.Store
	logger  *zap.Logger

	mu    sync.RWMutex
	named map[string]interface{}

	obsMu     sync.RWMutex
	observers map[chan MetricEvent]struct{}
}

func NewMetricsService(sampler Sampler, st store.Store, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		sampler:   sampler,
		store:     st,
		logger:    logger,
		named:     make(map[string]interface{}),
		observers: make(map[chan MetricEvent]struct{}),
	}
}

// GetCurrentMetrics samples once and hands the result to the history store
// without blocking the caller on persistence. A failed append is logged and
// swallowed: history is best-effort.
func (s *MetricsService) GetCurrentMetrics(ctx context.Context) models.SystemSnapshot {
	snap := s.sampler.Sample(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.Append(ctx, snap); err != nil {
			s.logger.Warn("history append failed", zap.Error(err))
		}
	}()

	return snap
}

// GetHistoricalMetrics returns the last `days` day partitions, oldest first.
func (s *MetricsService) GetHistoricalMetrics(ctx context.Context, days int) ([]models.SystemSnapshot, error) {
	return s.store.Query(ctx, days)
}

// TrackMetric records the last-known value for a named metric. Updates
// overwrite; no history is retained.
func (s *MetricsService) TrackMetric(name string, value interface{}) {
	s.mu.Lock()
	s.named[name] = value
	s.mu.Unlock()

	s.publish(MetricEvent{Type: EventMetricUpdated, Name: name, Value: value})
}

func (s *MetricsService) GetMetric(name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.named[name]

	return v, ok
}

func (s *MetricsService) GetAllMetrics() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{}, len(s.named))
	for k, v := range s.named {
		out[k] = v
	}

	return out
}

func (s *MetricsService) ClearMetrics() {
	s.mu.Lock()
	s.named = make(map[string]interface{})
	s.mu.Unlock()

	s.publish(MetricEvent{Type: EventMetricsCleared})
}

// Subscribe registers an observer for named-metric change events. The
// returned channel is buffered; events are dropped for observers that fall
// behind.
func (s *MetricsService) Subscribe() chan MetricEvent {
	ch := make(chan MetricEvent, 16)
	s.obsMu.Lock()
	s.observers[ch] = struct{}{}
	s.obsMu.Unlock()

	return ch
}

// Unsubscribe removes and closes an observer channel.
func (s *MetricsService) Unsubscribe(ch chan MetricEvent) {
	s.obsMu.Lock()
	if _, ok := s.observers[ch]; ok {
		delete(s.observers, ch)
		close(ch)
	}
	s.obsMu.Unlock()
}

func (s *MetricsService) publish(ev MetricEvent) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()

	for ch := range s.observers {
		select {
		case ch <- ev:
		default:
			// Observer's buffer is full, skip this event.
		}
	}
}
