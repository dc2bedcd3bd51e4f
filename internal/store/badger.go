package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"nexamon/internal/models"
)

const snapPrefix = "snap:"

// BadgerStore keeps day partitions as key ranges in an embedded Badger
// database. Keys are "snap:<day>:<millis>:<seq>" so that lexicographic
// iteration yields chronological order within a partition.
type BadgerStore struct {
	mu sync.Mutex

	db   *badger.DB
	opts Options
	seq  atomic.Uint64

	lastDay string
}

// NewBadgerStore opens (or creates) the database under dir.
func NewBadgerStore(dir string, opts Options) (*BadgerStore, error) {
	if dir == "" {
		dir = "./data/metrics-history"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	dbOpts := badger.DefaultOptions(dir)
	dbOpts.Logger = nil

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &BadgerStore{db: db, opts: opts}, nil
}

func (s *BadgerStore) Append(ctx context.Context, snap models.SystemSnapshot) error {
	day := dayOf(snap.Timestamp)
	key := fmt.Appendf([]byte{}, "%s%s:%013d:%06d", snapPrefix, day, snap.Timestamp, s.seq.Add(1)%1000000)
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, val); err != nil {
			return err
		}

		return s.evictOverflow(txn, day)
	})
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}

	s.pruneOnDayRoll(day)

	return nil
}

// evictOverflow drops the oldest keys of a partition until it is back at the
// retention limit.
func (s *BadgerStore) evictOverflow(txn *badger.Txn, day string) error {
	prefix := []byte(snapPrefix + day + ":")

	var keys [][]byte
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	excess := len(keys) - s.opts.limit()
	if excess <= 0 {
		return nil
	}

	for _, k := range keys[:excess] {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}

	return nil
}

func (s *BadgerStore) Query(ctx context.Context, days int) ([]models.SystemSnapshot, error) {
	var out []models.SystemSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		for _, day := range lastDays(days, time.Now()) {
			prefix := []byte(snapPrefix + day + ":")
			it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: prefix})
			for it.Rewind(); it.Valid(); it.Next() {
				err := it.Item().Value(func(val []byte) error {
					var snap models.SystemSnapshot
					if err := json.Unmarshal(val, &snap); err != nil {
						return fmt.Errorf("decode snapshot: %w", err)
					}
					out = append(out, snap)

					return nil
				})
				if err != nil {
					it.Close()

					return err
				}
			}
			it.Close()
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// pruneOnDayRoll removes whole partitions older than the retention window
// the first time an append lands on a new day. Caller holds s.mu.
func (s *BadgerStore) pruneOnDayRoll(day string) {
	rolled := day != s.lastDay
	s.lastDay = day
	if !rolled || s.opts.RetentionDays <= 0 {
		return
	}

	now := time.Now()
	var victims [][]byte
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: []byte(snapPrefix)})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			rest := bytes.TrimPrefix(key, []byte(snapPrefix))
			if idx := bytes.IndexByte(rest, ':'); idx > 0 {
				if beforeCutoff(string(rest[:idx]), s.opts.RetentionDays, now) {
					victims = append(victims, key)
				}
			}
		}

		return nil
	})

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range victims {
		if err := wb.Delete(k); err != nil {
			return
		}
	}
	_ = wb.Flush()
}
