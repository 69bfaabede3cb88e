package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS sessions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at   INTEGER NOT NULL,
	device       TEXT NOT NULL DEFAULT '',
	chip         TEXT NOT NULL DEFAULT '',
	firmware     TEXT NOT NULL,
	erase_method TEXT NOT NULL DEFAULT '',
	speed        TEXT NOT NULL DEFAULT '',
	speeds_tried TEXT NOT NULL DEFAULT '[]',
	succeeded    INTEGER NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);
CREATE INDEX IF NOT EXISTS sessions_created_at ON sessions (created_at);`

// Store keeps a local log of flash sessions in SQLite.
type Store struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// sqlite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	log.WithField("path", path).Debug("history opened")
	return &Store{db: sqlDB, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry and returns its id. A zero Time is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	speeds, _ := json.Marshal(e.SpeedsTried)

	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO sessions
		(created_at, device, chip, firmware, erase_method, speed, speeds_tried, succeeded, attempts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixMilli(), e.Device, e.Chip, e.Firmware, e.EraseMethod, e.Speed,
		string(speeds), boolToInt(e.Succeeded), e.Attempts, errText)
	if err != nil {
		return 0, fmt.Errorf("recording session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recording session: %w", err)
	}
	s.log.WithFields(logrus.Fields{"id": id, "chip": e.Chip, "succeeded": e.Succeeded}).Debug("session recorded")
	return id, nil
}

// Recent returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, created_at, device, chip, firmware, erase_method, speed,
	          speeds_tried, succeeded, attempts, COALESCE(error, '')
	          FROM sessions ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var millis int64
		var speeds string
		var succeeded int
		if err := rows.Scan(&e.ID, &millis, &e.Device, &e.Chip, &e.Firmware, &e.EraseMethod,
			&e.Speed, &speeds, &succeeded, &e.Attempts, &e.Error); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(millis)
		e.Succeeded = succeeded != 0
		json.Unmarshal([]byte(speeds), &e.SpeedsTried)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastFirmware returns the firmware of the most recent successful session
// for chip, or "" when there is none.
func (s *Store) LastFirmware(ctx context.Context, chip string) (string, error) {
	var fw string
	err := s.db.QueryRowContext(ctx, `SELECT firmware FROM sessions
		WHERE chip = ? AND succeeded = 1 ORDER BY created_at DESC, id DESC LIMIT 1`, chip).Scan(&fw)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying history: %w", err)
	}
	return fw, nil
}

// Summarize counts all recorded sessions by outcome.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(succeeded), 0) FROM sessions`).
		Scan(&sum.Total, &sum.Succeeded)
	if err != nil {
		return sum, fmt.Errorf("summarizing history: %w", err)
	}
	sum.Failed = sum.Total - sum.Succeeded
	return sum, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
