// Package cache persists the output of every pipeline stage per scene so that
// executing a pipeline again only computes what changed.
package cache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/askiada/go-cloudmetrics/pkg/field"
)

var ErrLocked = errors.New("cache is used by another execution")

// Store is a SQLite backed stage result cache. A lock file next to the database
// keeps two executions from writing the same cache at once.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open creates or opens the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create cache directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open sqlite db")
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()

			return nil, errors.Wrapf(err, "unable to apply pragma %q", pragma)
		}
	}

	store := &Store{db: db, path: path, lock: flock.New(path + ".lock")}
	err = store.applyMigrations(ctx)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return store, nil
}

// Path returns the location of the database.
func (s *Store) Path() string {
	return s.path
}

// Lock takes the execution lock, waiting until ctx is done.
func (s *Store) Lock(ctx context.Context) error {
	ok, err := s.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return errors.Wrap(ErrLocked, err.Error())
	}
	if !ok {
		return ErrLocked
	}

	return nil
}

// Unlock releases the execution lock.
func (s *Store) Unlock() error {
	err := s.lock.Unlock()
	if err != nil {
		return errors.Wrap(err, "unable to release cache lock")
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Get returns the cached output of stageKey for sceneID read from source.
func (s *Store) Get(ctx context.Context, source, sceneID, stageKey string) (*field.Field, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM results WHERE source = ? AND scene_id = ? AND stage_key = ?`,
		source, sceneID, stageKey,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to read %s/%s", sceneID, stageKey)
	}

	f := &field.Field{}
	err = f.UnmarshalBinary(payload)
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to decode %s/%s", sceneID, stageKey)
	}

	return f, true, nil
}

// Put stores the output of stageKey for sceneID read from source, replacing
// any previous value.
func (s *Store) Put(ctx context.Context, source, sceneID, stageKey string, f *field.Field) error {
	payload, err := f.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s/%s", sceneID, stageKey)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (source, scene_id, stage_key, payload, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, scene_id, stage_key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		source, sceneID, stageKey, payload, now(),
	)
	if err != nil {
		return errors.Wrapf(err, "unable to write %s/%s", sceneID, stageKey)
	}

	return nil
}

// Clean removes every cached stage result. Run history is kept.
func (s *Store) Clean(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM results`)
	if err != nil {
		return errors.Wrap(err, "unable to clean cache")
	}

	return nil
}

// Count returns the number of cached stage results.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM results`).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "unable to count cached results")
	}

	return n, nil
}
