// Package journal persists pipeline run reports to SQLite.
package journal

import (
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/loom/internal/pipeline"
)

// Store is an append-mostly run journal backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path. ":memory:" works
// for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %s", path)
	}

	ddl := `
	CREATE TABLE IF NOT EXISTS runs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at    INTEGER NOT NULL,
		schema_path   TEXT NOT NULL,
		output_path   TEXT NOT NULL,
		output_format TEXT,
		commands      TEXT,
		stages        TEXT,
		elapsed_ms    INTEGER NOT NULL,
		final_state   TEXT NOT NULL,
		failed_stage  TEXT,
		error         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init journal schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordRun appends one run report.
func (s *Store) RecordRun(cfg pipeline.Config, report pipeline.Report) error {
	finalState := ""
	failedStage := ""
	errText := ""
	if report.Final != nil {
		finalState = string(report.Final.Kind())
		if failed, ok := report.Final.(pipeline.Failed); ok {
			failedStage = string(failed.Stage)
			if failed.Err != nil {
				errText = failed.Err.Error()
			}
		}
	}

	stages := make([]string, len(report.Stages))
	for i, st := range report.Stages {
		stages[i] = string(st)
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (created_at, schema_path, output_path, output_format, commands, stages, elapsed_ms, final_state, failed_stage, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(),
		cfg.SchemaPath,
		cfg.OutputPath,
		string(cfg.OutputFormat),
		strings.Join(report.Executed, ","),
		strings.Join(stages, ","),
		report.Elapsed.Milliseconds(),
		finalState,
		failedStage,
		errText,
	)
	return errors.Wrap(err, "record run")
}

// RunRecord is one journal row.
type RunRecord struct {
	ID          int64
	CreatedAt   time.Time
	SchemaPath  string
	OutputPath  string
	Format      string
	Commands    []string
	Stages      []string
	Elapsed     time.Duration
	FinalState  string
	FailedStage string
	Error       string
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, created_at, schema_path, output_path, output_format, commands, stages, elapsed_ms, final_state, failed_stage, error
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var created, elapsedMs int64
		var commands, stages string
		if err := rows.Scan(&r.ID, &created, &r.SchemaPath, &r.OutputPath, &r.Format, &commands, &stages, &elapsedMs, &r.FinalState, &r.FailedStage, &r.Error); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		r.CreatedAt = time.Unix(created, 0)
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		if commands != "" {
			r.Commands = strings.Split(commands, ",")
		}
		if stages != "" {
			r.Stages = strings.Split(stages, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
