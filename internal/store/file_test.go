package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexamon/internal/models"
)

func testSnapshot(base time.Time, i int) models.SystemSnapshot {
	return models.SystemSnapshot{
		Timestamp:        base.Add(time.Duration(i) * time.Second).UnixMilli(),
		CPUUsagePercent:  float64(i % 100),
		MemoryUsedBytes:  uint64(i) * 1024,
		MemoryTotalBytes: 8 * 1024 * 1024 * 1024,
		UptimeSeconds:    uint64(i),
	}
}

// todayBase returns a timestamp safely inside the current UTC day.
func todayBase(t *testing.T) time.Time {
	t.Helper()

	return time.Now().UTC().Truncate(24 * time.Hour).Add(time.Hour)
}

func TestFileStoreAppendThenQuery(t *testing.T) {
	st, err := NewFileStore(t.TempDir(), Options{})
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	base := todayBase(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, st.Append(ctx, testSnapshot(base, i)))
	}

	got, err := st.Query(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].Timestamp, got[i-1].Timestamp)
	}
	assert.Equal(t, base.UnixMilli(), got[0].Timestamp)
}

func TestFileStoreRetentionEviction(t *testing.T) {
	st, err := NewFileStore(t.TempDir(), Options{RetentionLimit: 1440})
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	base := todayBase(t)

	for i := 1; i <= 1500; i++ {
		require.NoError(t, st.Append(ctx, testSnapshot(base, i)))
	}

	got, err := st.Query(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1440)

	// Oldest 60 evicted: entries 61..1500 remain.
	assert.Equal(t, testSnapshot(base, 61).Timestamp, got[0].Timestamp)
	assert.Equal(t, testSnapshot(base, 1500).Timestamp, got[len(got)-1].Timestamp)
}

func TestFileStoreQueryMissingPartitions(t *testing.T) {
	st, err := NewFileStore(t.TempDir(), Options{})
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	base := todayBase(t)

	require.NoError(t, st.Append(ctx, testSnapshot(base, 0)))

	// Only today's partition exists; asking for three days is not an error.
	got, err := st.Query(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileStoreQueryDaysClamped(t *testing.T) {
	st, err := NewFileStore(t.TempDir(), Options{})
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Append(ctx, testSnapshot(todayBase(t), 0)))

	got, err := st.Query(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = st.Query(ctx, -4)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileStorePartitionLayout(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir, Options{})
	require.NoError(t, err)
	defer st.Close()

	snap := testSnapshot(todayBase(t), 0)
	require.NoError(t, st.Append(context.Background(), snap))

	day := time.UnixMilli(snap.Timestamp).UTC().Format("2006-01-02")
	_, err = os.Stat(filepath.Join(dir, day+".json"))
	assert.NoError(t, err, "partition file should be named by ISO date")
}

func TestFileStorePruneOldPartitions(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir, Options{RetentionDays: 7})
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	base := todayBase(t)

	// Partition far outside the retention window.
	old := testSnapshot(base.AddDate(0, 0, -30), 0)
	require.NoError(t, st.Append(ctx, old))

	// First append on a different day triggers the prune.
	require.NoError(t, st.Append(ctx, testSnapshot(base, 0)))

	oldDay := time.UnixMilli(old.Timestamp).UTC().Format("2006-01-02")
	_, err = os.Stat(filepath.Join(dir, oldDay+".json"))
	assert.True(t, os.IsNotExist(err), "expired partition should be pruned")

	got, err := st.Query(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
