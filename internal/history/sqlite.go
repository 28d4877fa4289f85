// Package history persists download summaries for display across sessions.
// The orchestration core only uses it as an opaque upsert/query/delete
// collaborator; each call is atomic but there are no cross-call transactions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/viddown/api/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id TEXT PRIMARY KEY,
	title TEXT,
	url TEXT,
	platform TEXT,
	format TEXT,
	quality TEXT,
	thumbnail TEXT,
	channel TEXT,
	status TEXT,
	progress INTEGER,
	size TEXT,
	date TEXT,
	job_id TEXT
);
`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create downloads table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert inserts or replaces the record keyed by its id.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *model.HistoryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (id, title, url, platform, format, quality, thumbnail, channel, status, progress, size, date, job_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			platform = excluded.platform,
			format = excluded.format,
			quality = excluded.quality,
			thumbnail = excluded.thumbnail,
			channel = excluded.channel,
			status = excluded.status,
			progress = excluded.progress,
			size = excluded.size,
			date = excluded.date,
			job_id = excluded.job_id`,
		rec.ID, rec.Title, rec.URL, rec.Platform, rec.Format, rec.Quality,
		rec.Thumbnail, rec.Channel, rec.Status, rec.Progress, rec.Size, rec.Date, rec.JobID,
	)
	if err != nil {
		return fmt.Errorf("upsert download %s: %w", rec.ID, err)
	}
	return nil
}

// List returns all records, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*model.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, platform, format, quality, thumbnail, channel, status, progress, size, date, job_id
		FROM downloads
		ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var records []*model.HistoryRecord
	for rows.Next() {
		var rec model.HistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.URL, &rec.Platform, &rec.Format, &rec.Quality,
			&rec.Thumbnail, &rec.Channel, &rec.Status, &rec.Progress, &rec.Size, &rec.Date, &rec.JobID,
		); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Delete removes the record with the given id, if present.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete download %s: %w", id, err)
	}
	return nil
}

// DeleteByStatus removes every record with the given status.
func (s *SQLiteStore) DeleteByStatus(ctx context.Context, status string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE status = ?`, status)
	if err != nil {
		return 0, fmt.Errorf("delete downloads with status %s: %w", status, err)
	}
	return res.RowsAffected()
}
