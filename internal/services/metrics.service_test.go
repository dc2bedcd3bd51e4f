package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nexamon/internal/models"
)

type stubSampler struct {
	calls atomic.Int64
}

func (s *stubSampler) Sample(ctx context.Context) models.SystemSnapshot {
	n := s.calls.Add(1)

	return models.SystemSnapshot{
		Timestamp:        time.Now().UnixMilli(),
		CPUUsagePercent:  float64(n),
		MemoryUsedBytes:  1024,
		MemoryTotalBytes: 4096,
	}
}

type recordingStore struct {
	appends chan models.SystemSnapshot
}

func newRecordingStore() *recordingStore {
	return &recordingStore{appends: make(chan models.SystemSnapshot, 16)}
}

func (s *recordingStore) Append(ctx context.Context, snap models.SystemSnapshot) error {
	s.appends <- snap

	return nil
}

func (s *recordingStore) Query(ctx context.Context, days int) ([]models.SystemSnapshot, error) {
	return nil, nil
}

func (s *recordingStore) Close() error { return nil }

func newTestMetricsService(t *testing.T) (*MetricsService, *stubSampler, *recordingStore) {
	t.Helper()

	sampler := &stubSampler{}
	st := newRecordingStore()

	return NewMetricsService(sampler, st, zap.NewNop()), sampler, st
}

func TestGetCurrentMetricsPersistsAsync(t *testing.T) {
	svc, sampler, st := newTestMetricsService(t)

	snap := svc.GetCurrentMetrics(context.Background())
	assert.Equal(t, int64(1), sampler.calls.Load())

	select {
	case stored := <-st.appends:
		assert.Equal(t, snap.Timestamp, stored.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot was never handed to the store")
	}
}

func TestTrackMetricOverwrites(t *testing.T) {
	svc, _, _ := newTestMetricsService(t)

	svc.TrackMetric("foo", 1)
	svc.TrackMetric("foo", 2)

	v, ok := svc.GetMetric("foo")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetMetricMissing(t *testing.T) {
	svc, _, _ := newTestMetricsService(t)

	_, ok := svc.GetMetric("nope")
	assert.False(t, ok)
}

func TestGetAllMetricsReturnsCopy(t *testing.T) {
	svc, _, _ := newTestMetricsService(t)

	svc.TrackMetric("a", 1)
	all := svc.GetAllMetrics()
	all["b"] = 2

	_, ok := svc.GetMetric("b")
	assert.False(t, ok, "mutating the returned map must not affect the service")
}

func TestClearMetrics(t *testing.T) {
	svc, _, _ := newTestMetricsService(t)

	svc.TrackMetric("a", 1)
	svc.TrackMetric("b", 2)
	svc.ClearMetrics()

	assert.Empty(t, svc.GetAllMetrics())
}

func TestObserversReceiveChangeEvents(t *testing.T) {
	svc, _, _ := newTestMetricsService(t)

	ch := svc.Subscribe()
	defer svc.Unsubscribe(ch)

	svc.TrackMetric("foo", 7)

	select {
	case ev := <-ch:
		assert.Equal(t, EventMetricUpdated, ev.Type)
		assert.Equal(t, "foo", ev.Name)
		assert.Equal(t, 7, ev.Value)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	svc.ClearMetrics()

	select {
	case ev := <-ch:
		assert.Equal(t, EventMetricsCleared, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no clear event delivered")
	}
}

func TestUnsubscribedObserverGetsNothing(t *testing.T) {
	svc, _, _ := newTestMetricsService(t)

	ch := svc.Subscribe()
	svc.Unsubscribe(ch)

	// Channel is closed on unsubscribe; publishing afterwards must not panic.
	svc.TrackMetric("foo", 1)

	_, open := <-ch
	assert.False(t, open)
}
