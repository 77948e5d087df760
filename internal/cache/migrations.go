package cache

import (
	"context"

	"github.com/pkg/errors"
)

type migration struct {
	version    string
	statements []string
}

var migrations = []migration{
	{
		version: "0001_results",
		statements: []string{`CREATE TABLE results (
			scene_id   TEXT NOT NULL,
			stage_key  TEXT NOT NULL,
			payload    BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (scene_id, stage_key)
		)`},
	},
	{
		version: "0002_runs",
		statements: []string{`CREATE TABLE runs (
			id          TEXT PRIMARY KEY,
			pipeline_id TEXT,
			started_at  TEXT NOT NULL,
			finished_at TEXT,
			scenes      INTEGER NOT NULL DEFAULT 0,
			records     INTEGER NOT NULL DEFAULT 0,
			status      TEXT NOT NULL,
			error       TEXT
		)`},
	},
	{
		// results written before sources were tracked cannot be attributed to a file
		version: "0003_results_source",
		statements: []string{
			`DROP TABLE results`,
			`CREATE TABLE results (
				source     TEXT NOT NULL,
				scene_id   TEXT NOT NULL,
				stage_key  TEXT NOT NULL,
				payload    BLOB NOT NULL,
				created_at TEXT NOT NULL,
				PRIMARY KEY (source, scene_id, stage_key)
			)`,
		},
	},
}

func (s *Store) applyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "unable to begin migration tx")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return errors.Wrap(err, "unable to ensure schema_migrations")
	}

	for _, m := range migrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&count); err != nil {
			return errors.Wrap(err, "unable to scan migration version")
		}
		if count > 0 {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "unable to apply migration %s", m.version)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return errors.Wrapf(err, "unable to record migration %s", m.version)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "unable to commit migrations")
	}

	return nil
}
