// Package runlog keeps a small sqlite ledger of scrape runs so operators
// can see what was written, when, and how long it took.
package runlog

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

const Schema = `
CREATE TABLE IF NOT EXISTS scrape_run (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	board         TEXT NOT NULL,
	snapshot_date TEXT NOT NULL,
	part_path     TEXT NOT NULL,
	record_count  INTEGER NOT NULL,
	started_at    INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL
);
`

type Run struct {
	ID           int64
	Board        string
	SnapshotDate string
	PartPath     string
	RecordCount  int64
	StartedAt    time.Time
	Duration     time.Duration
}

type Log struct {
	db *sql.DB
}

func NewLog(database *sql.DB) (Log, error) {
	if _, err := database.Exec(Schema); err != nil {
		return Log{}, err
	}
	return Log{db: database}, nil
}

func (l Log) Append(ctx context.Context, run Run) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO scrape_run (board, snapshot_date, part_path, record_count, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.Board,
		run.SnapshotDate,
		run.PartPath,
		run.RecordCount,
		run.StartedAt.Unix(),
		run.Duration.Milliseconds(),
	)
	return err
}

// List returns runs newest first.
func (l Log) List(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, board, snapshot_date, part_path, record_count, started_at, duration_ms
		 FROM scrape_run
		 ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt, durationMs int64
		err := rows.Scan(
			&run.ID,
			&run.Board,
			&run.SnapshotDate,
			&run.PartPath,
			&run.RecordCount,
			&startedAt,
			&durationMs,
		)
		if err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
