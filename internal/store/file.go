package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexamon/internal/models"
)

// FileStore keeps one JSON array file per UTC day under dir, named by ISO
// date. Writes go through a temp file and a rename so concurrent readers
// never observe a partial partition.
type FileStore struct {
	dir    string
	opts   Options
	logger *zap.Logger

	locks sync.Map // day key -> *sync.Mutex

	mu      sync.Mutex
	lastDay string
}

// NewFileStore creates the history directory if needed.
func NewFileStore(dir string, opts Options) (*FileStore, error) {
	if dir == "" {
		dir = "./data/metrics-history"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	return &FileStore{dir: dir, opts: opts, logger: zap.NewNop()}, nil
}

// WithLogger sets the logger used for prune warnings.
func (s *FileStore) WithLogger(logger *zap.Logger) *FileStore {
	s.logger = logger

	return s
}

func (s *FileStore) Append(ctx context.Context, snap models.SystemSnapshot) error {
	day := dayOf(snap.Timestamp)

	lock := s.partitionLock(day)
	lock.Lock()
	defer lock.Unlock()

	entries, err := s.readPartition(day)
	if err != nil {
		return err
	}

	entries = append(entries, snap)
	if limit := s.opts.limit(); len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	if err := s.writePartition(day, entries); err != nil {
		return err
	}

	s.pruneOnDayRoll(day)

	return nil
}

func (s *FileStore) Query(ctx context.Context, days int) ([]models.SystemSnapshot, error) {
	var out []models.SystemSnapshot
	for _, day := range lastDays(days, time.Now()) {
		lock := s.partitionLock(day)
		lock.Lock()
		entries, err := s.readPartition(day)
		lock.Unlock()
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}

	return out, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) partitionLock(day string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(day, &sync.Mutex{})

	return lock.(*sync.Mutex)
}

func (s *FileStore) partitionPath(day string) string {
	return filepath.Join(s.dir, day+".json")
}

func (s *FileStore) readPartition(day string) ([]models.SystemSnapshot, error) {
	data, err := os.ReadFile(s.partitionPath(day))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", day, err)
	}

	var entries []models.SystemSnapshot
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode partition %s: %w", day, err)
	}

	return entries, nil
}

func (s *FileStore) writePartition(day string, entries []models.SystemSnapshot) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode partition %s: %w", day, err)
	}

	tmp, err := os.CreateTemp(s.dir, day+".json.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp partition: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("write partition %s: %w", day, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("close temp partition: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.partitionPath(day)); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("publish partition %s: %w", day, err)
	}

	return nil
}

// pruneOnDayRoll deletes partitions older than the retention window. It only
// does work the first time an append lands on a new day.
func (s *FileStore) pruneOnDayRoll(day string) {
	s.mu.Lock()
	rolled := day != s.lastDay
	s.lastDay = day
	s.mu.Unlock()

	if !rolled || s.opts.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("history prune: list directory", zap.Error(err))

		return
	}

	now := time.Now()
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if name == e.Name() {
			continue
		}
		if beforeCutoff(name, s.opts.RetentionDays, now) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				s.logger.Warn("history prune: remove partition",
					zap.String("partition", name), zap.Error(err))
			}
		}
	}
}
