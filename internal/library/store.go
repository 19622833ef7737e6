package library

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"rhythmdb/internal/analysis"
	"rhythmdb/internal/fileutil"
	"rhythmdb/internal/logging"
	"rhythmdb/internal/services"
	"rhythmdb/internal/trackkey"
)

// File names under the database folder.
const (
	MainStoreName     = "RhythmDB.json"
	CriteriaStoreName = "CriteriaDB.json"
)

// MainStore is the on-disk shape of RhythmDB.json.
type MainStore struct {
	Tracks map[string]analysis.Record `json:"tracks"`
}

// Store owns the database folder and serializes all writes to the two JSON
// stores. Reads take no lock; the rename-based write pattern keeps every
// published file complete.
type Store struct {
	dir    string
	logger *slog.Logger

	// The lock files sit beside the stores and are never renamed. Locking
	// the store file itself would leave the lock on the replaced inode.
	mainLock     *flock.Flock
	criteriaLock *flock.Flock

	now func() time.Time
}

// NewStore creates a store rooted at the given database folder. The folder
// is created lazily on first write.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:          dir,
		logger:       logging.NewComponentLogger(logger, "library"),
		mainLock:     flock.New(filepath.Join(dir, MainStoreName+".lock")),
		criteriaLock: flock.New(filepath.Join(dir, CriteriaStoreName+".lock")),
		now:          time.Now,
	}
}

// Dir returns the database folder.
func (s *Store) Dir() string { return s.dir }

// MainPath returns the location of the main store file.
func (s *Store) MainPath() string { return filepath.Join(s.dir, MainStoreName) }

// CriteriaPath returns the location of the criteria store file.
func (s *Store) CriteriaPath() string { return filepath.Join(s.dir, CriteriaStoreName) }

// Upsert merges rec into the main store under its normalized key and
// persists the result. The first write of a key stamps created_at; every
// write refreshes updated_at. The returned record is the merged copy now
// held by the store.
func (s *Store) Upsert(rec analysis.Record) (analysis.Record, error) {
	key := rec.Key
	if key == "" {
		key = trackkey.Key(rec.Path)
	}
	if key == "" {
		return analysis.Record{}, services.Wrap(services.ErrValidation, "library", "upsert", "record carries no path", nil)
	}

	release, err := s.acquire(s.mainLock, "upsert")
	if err != nil {
		return analysis.Record{}, err
	}
	defer release()

	store, err := s.loadMain()
	if err != nil {
		return analysis.Record{}, err
	}

	existing, found := store.Tracks[key]
	merged := mergeRecords(existing, rec)
	merged.Key = key
	stamp := analysis.Timestamp(s.now())
	merged.UpdatedAt = stamp
	if merged.CreatedAt == "" {
		merged.CreatedAt = stamp
	}
	store.Tracks[key] = merged

	if err := s.saveMain(store); err != nil {
		return analysis.Record{}, err
	}

	s.logger.Debug("upserted track",
		logging.String(logging.FieldTrackKey, key),
		logging.Bool("existing_entry", found),
		logging.Int("track_count", len(store.Tracks)))
	return merged, nil
}

// Load returns a point-in-time snapshot of the main store. A missing store
// reads as empty.
func (s *Store) Load() (MainStore, error) {
	return s.loadMain()
}

// RebuildCriteria sweeps the main store and rewrites CriteriaDB.json from
// scratch. The sweep reads a snapshot, so upserts landing concurrently are
// picked up by the next rebuild.
func (s *Store) RebuildCriteria() (Criteria, error) {
	release, err := s.acquire(s.criteriaLock, "rebuild criteria")
	if err != nil {
		return Criteria{}, err
	}
	defer release()

	store, err := s.loadMain()
	if err != nil {
		return Criteria{}, err
	}

	criteria := BuildCriteria(store)
	data, err := json.MarshalIndent(criteria, "", "  ")
	if err != nil {
		return Criteria{}, services.Wrap(services.ErrStoreIO, "library", "rebuild criteria", "encode criteria store", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(s.CriteriaPath(), data, 0o644); err != nil {
		return Criteria{}, services.Wrap(services.ErrStoreIO, "library", "rebuild criteria", "write criteria store", err)
	}

	s.logger.Debug("rebuilt criteria store",
		logging.Int("track_count", len(store.Tracks)),
		logging.Int("facet_values", criteria.ValueCount()))
	return criteria, nil
}

// acquire readies the database folder and takes an exclusive lock, returning
// the matching release func.
func (s *Store) acquire(lock *flock.Flock, operation string) (func(), error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStoreIO, "library", operation, "create database folder", err)
	}
	if err := lock.Lock(); err != nil {
		return nil, services.Wrap(services.ErrStoreIO, "library", operation, "acquire store lock", err)
	}
	release := func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release store lock",
				logging.String("lock", lock.Path()),
				logging.Error(err))
		}
	}
	return release, nil
}

func (s *Store) loadMain() (MainStore, error) {
	store := MainStore{Tracks: make(map[string]analysis.Record)}
	data, err := os.ReadFile(s.MainPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return store, services.Wrap(services.ErrStoreIO, "library", "load", "read main store", err)
	}
	if len(data) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return MainStore{Tracks: make(map[string]analysis.Record)}, services.Wrap(services.ErrStoreIO, "library", "load", "parse main store", err)
	}
	if store.Tracks == nil {
		store.Tracks = make(map[string]analysis.Record)
	}
	return store, nil
}

func (s *Store) saveMain(store MainStore) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStoreIO, "library", "save", "encode main store", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(s.MainPath(), data, 0o644); err != nil {
		return services.Wrap(services.ErrStoreIO, "library", "save", "write main store", err)
	}
	return nil
}
