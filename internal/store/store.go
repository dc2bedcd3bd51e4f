package store

import (
	"context"
	"fmt"
	"time"

	"nexamon/internal/models"
)

// DefaultRetentionLimit caps a single day partition at one sample per minute
// for 24 hours.
const DefaultRetentionLimit = 1440

const dayFormat = "2006-01-02"

// Store is the snapshot history contract: a day-partitioned, size-bounded
// append log keyed by the UTC calendar date of each snapshot.
type Store interface {
	// Append adds a snapshot to its day partition, evicting the oldest
	// entries once the partition exceeds the retention limit.
	Append(ctx context.Context, snap models.SystemSnapshot) error
	// Query returns the last `days` partitions (including the current day)
	// concatenated oldest-first. Missing partitions are skipped. days <= 0
	// is treated as 1.
	Query(ctx context.Context, days int) ([]models.SystemSnapshot, error)
	Close() error
}

// Options tune partition bounds shared by all engines.
type Options struct {
	// RetentionLimit is the maximum number of entries per day partition.
	// Zero means DefaultRetentionLimit.
	RetentionLimit int
	// RetentionDays bounds how many day partitions are kept; older ones are
	// pruned when a new day starts. Zero disables cross-day pruning.
	RetentionDays int
}

func (o Options) limit() int {
	if o.RetentionLimit <= 0 {
		return DefaultRetentionLimit
	}

	return o.RetentionLimit
}

// New builds a store for the named engine rooted at dir.
func New(engine, dir string, opts Options) (Store, error) {
	switch engine {
	case "file":
		return NewFileStore(dir, opts)
	case "badger":
		return NewBadgerStore(dir, opts)
	default:
		return nil, fmt.Errorf("unknown store engine %q", engine)
	}
}

// dayOf resolves the UTC day partition for a snapshot timestamp.
func dayOf(tsMillis int64) string {
	return time.UnixMilli(tsMillis).UTC().Format(dayFormat)
}

// lastDays lists partition keys for the last n days ending at now,
// oldest first.
func lastDays(n int, now time.Time) []string {
	if n <= 0 {
		n = 1
	}
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, now.UTC().AddDate(0, 0, -i).Format(dayFormat))
	}

	return keys
}

// beforeCutoff reports whether a partition key is older than the retention
// window. Unparsable keys are left alone.
func beforeCutoff(day string, retentionDays int, now time.Time) bool {
	if retentionDays <= 0 {
		return false
	}
	t, err := time.Parse(dayFormat, day)
	if err != nil {
		return false
	}
	cutoff := now.UTC().AddDate(0, 0, -retentionDays)

	return t.Before(cutoff.Truncate(24 * time.Hour))
}
