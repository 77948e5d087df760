package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// timeLayout has a fixed width so that stored times sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// Run is the record of one pipeline execution.
type Run struct {
	ID         string
	PipelineID string
	StartedAt  time.Time
	FinishedAt time.Time
	Scenes     int
	Records    int
	Status     RunStatus
	Error      string
}

// BeginRun records the start of an execution.
func (s *Store) BeginRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, scenes, status) VALUES (?, ?, 0, ?)`,
		runID, now(), RunRunning,
	)
	if err != nil {
		return errors.Wrapf(err, "unable to record run %s", runID)
	}

	return nil
}

// FinishRun records the outcome of an execution.
func (s *Store) FinishRun(ctx context.Context, runID, pipelineID string, scenes, records int, runErr error) error {
	status := RunSucceeded
	var message sql.NullString
	if runErr != nil {
		status = RunFailed
		message = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET pipeline_id = ?, finished_at = ?, scenes = ?, records = ?, status = ?, error = ? WHERE id = ?`,
		pipelineID, now(), scenes, records, status, message, runID,
	)
	if err != nil {
		return errors.Wrapf(err, "unable to finish run %s", runID)
	}

	return nil
}

// Runs returns the latest executions, most recent first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(pipeline_id, ''), started_at, COALESCE(finished_at, ''), scenes, records, status, COALESCE(error, '')
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list runs")
	}
	defer rows.Close()

	res := []Run{}
	for rows.Next() {
		var (
			run               Run
			started, finished string
			status            string
		)
		err := rows.Scan(&run.ID, &run.PipelineID, &started, &finished, &run.Scenes, &run.Records, &status, &run.Error)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan run")
		}
		run.Status = RunStatus(status)
		run.StartedAt, _ = time.Parse(timeLayout, started)
		if finished != "" {
			run.FinishedAt, _ = time.Parse(timeLayout, finished)
		}
		res = append(res, run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to iterate runs")
	}

	return res, nil
}
