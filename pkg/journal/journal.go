// Package journal persists the activity log in SQLite so that `portpanel history`
// can show what happened in earlier sessions.
package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/xlttj/portpanel/pkg/activity"
	"github.com/xlttj/portpanel/pkg/logging"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

const entriesTable = "entries"

// Journal is an activity.Recorder backed by a SQLite table.
type Journal struct {
	db     *sql.DB
	mutex  sync.Mutex
	dbPath string
}

// Open creates (if needed) and opens the journal database at path.
func Open(path string) (*Journal, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, errors.Wrap(err, "create journal directory")
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			f, ferr := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
			if ferr == nil {
				_ = f.Close()
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal database")
	}
	// every new connection to :memory: is a new empty database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping journal database")
	}

	j := &Journal{db: db, dbPath: path}
	if err := j.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logging.LogDebug("Journal opened at: %s", path)
	return j, nil
}

func (j *Journal) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		level TEXT NOT NULL,
		source TEXT NOT NULL,
		rule_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_ts ON entries(ts);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return errors.Wrap(err, "initialize journal schema")
	}
	return nil
}

// Path returns the database location.
func (j *Journal) Path() string {
	return j.dbPath
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Append stores one entry.
func (j *Journal) Append(e activity.Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Level == "" {
		e.Level = activity.LevelInfo
	}

	query, args, err := sq.Insert(entriesTable).
		Columns("ts", "level", "source", "rule_id", "message").
		Values(e.Time.UnixNano(), string(e.Level), e.Source, e.RuleID, e.Message).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build journal insert")
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	_, err = j.db.Exec(query, args...)
	return errors.Wrap(err, "append journal entry")
}

// Record implements activity.Recorder. Failures are logged, never returned.
func (j *Journal) Record(e activity.Entry) {
	if err := j.Append(e); err != nil {
		logging.LogError("Journal: %v", err)
	}
}

// SetStatus implements activity.Recorder; status summaries are transient and not journaled.
func (j *Journal) SetStatus(activity.Status) {}

// Recent returns up to limit of the newest entries, oldest first.
func (j *Journal) Recent(limit int) ([]activity.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := sq.Select("ts", "level", "source", "rule_id", "message").
		From(entriesTable).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build journal query")
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query journal")
	}
	defer rows.Close()

	var out []activity.Entry
	for rows.Next() {
		var (
			ts    int64
			level string
			e     activity.Entry
		)
		if err := rows.Scan(&ts, &level, &e.Source, &e.RuleID, &e.Message); err != nil {
			return nil, errors.Wrap(err, "scan journal entry")
		}
		e.Time = time.Unix(0, ts)
		e.Level = activity.Level(level)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate journal")
	}
	slices.Reverse(out)
	return out, nil
}

// Count returns the number of stored entries.
func (j *Journal) Count() (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(entriesTable).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build journal count")
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	var n int
	err = j.db.QueryRow(query, args...).Scan(&n)
	return n, errors.Wrap(err, "count journal entries")
}

// Prune deletes entries recorded before cutoff and returns how many were removed.
func (j *Journal) Prune(cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete(entriesTable).Where(sq.Lt{"ts": cutoff.UnixNano()}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build journal prune")
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	res, err := j.db.Exec(query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "prune journal")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "prune journal")
	}
	logging.LogDebug("Journal: pruned %d entries before %s", n, cutoff.Format(time.RFC3339))
	return n, nil
}
