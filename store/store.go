// Package store persists detections and per-file upload history in
// SQLite and serves the filtered reads the aggregation and export
// layers are built on.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/urlsentry/dbopen"
	"github.com/hazyhaar/urlsentry/detect"
	_ "modernc.org/sqlite"
)

// ErrNotFound marks lookups and deletes that named a missing row.
var ErrNotFound = errors.New("not found")

// Detection is one classified URL, owned by the store once written.
// Immutable after insert; removed only by ClearAll or by deleting the
// owning file entry.
type Detection struct {
	ID              string            `json:"id"`
	FileID          string            `json:"file_id"`
	URL             string            `json:"url"`
	SourceIP        string            `json:"source_ip,omitempty"`
	AttackType      detect.AttackType `json:"attack_type"`
	Severity        detect.Severity   `json:"severity"`
	ConfidenceScore int               `json:"confidence_score"`
	Timestamp       string            `json:"timestamp,omitempty"`
	DetectedAt      string            `json:"detected_at"`
}

// FileEntry is the per-upload summary row owning a file's detections.
type FileEntry struct {
	ID                   string `json:"id"`
	FileName             string `json:"file_name"`
	FileType             string `json:"file_type"`
	UploadTime           string `json:"upload_time"`
	TotalURLsProcessed   int    `json:"total_urls_processed"`
	TotalAttacksDetected int    `json:"total_attacks_detected"`
}

// Filter narrows ListDetections. Zero-value fields are ignored; set
// fields combine with AND.
type Filter struct {
	AttackType string
	SourceIP   string
	Severity   string
	FileID     string
}

// historyLimit bounds FileHistory reads; the dashboard shows recent
// uploads only.
const historyLimit = 50

// Store wraps the urlsentry SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-open database (e.g. dbopen.OpenMemory in tests)
// and runs migrations.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS file_history (
    id                      TEXT PRIMARY KEY,
    file_name               TEXT NOT NULL,
    file_type               TEXT NOT NULL,
    upload_time             TEXT NOT NULL,
    total_urls_processed    INTEGER NOT NULL DEFAULT 0,
    total_attacks_detected  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS detections (
    id                TEXT PRIMARY KEY,
    file_id           TEXT NOT NULL REFERENCES file_history(id) ON DELETE CASCADE,
    url               TEXT NOT NULL,
    source_ip         TEXT,
    attack_type       TEXT NOT NULL,
    severity          TEXT NOT NULL,
    confidence_score  INTEGER NOT NULL,
    timestamp         TEXT,
    detected_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_file ON detections(file_id);
CREATE INDEX IF NOT EXISTS idx_detections_type ON detections(attack_type);
CREATE INDEX IF NOT EXISTS idx_detections_ip   ON detections(source_ip);
CREATE INDEX IF NOT EXISTS idx_history_upload  ON file_history(upload_time);
`
	_, err := s.db.Exec(ddl)
	return err
}

// SaveRun persists one processing pass atomically: the file entry with
// its finalized totals plus the full detection batch, in a single
// transaction. A reader either sees the entry with every detection row
// or nothing at all; a failed parse upstream never reaches this point,
// so no partial state is ever visible.
func (s *Store) SaveRun(ctx context.Context, entry *FileEntry, dets []Detection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO file_history (id, file_name, file_type, upload_time, total_urls_processed, total_attacks_detected)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.FileName, entry.FileType, entry.UploadTime,
		entry.TotalURLsProcessed, entry.TotalAttacksDetected,
	); err != nil {
		return fmt.Errorf("insert file entry: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO detections (id, file_id, url, source_ip, attack_type, severity, confidence_score, timestamp, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range dets {
		d := &dets[i]
		if _, err := stmt.ExecContext(ctx,
			d.ID, entry.ID, d.URL, d.SourceIP, d.AttackType, d.Severity,
			d.ConfidenceScore, d.Timestamp, d.DetectedAt,
		); err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListDetections returns detections matching the filter, most recent
// first. ID is the tiebreaker so the order is stable across calls.
func (s *Store) ListDetections(ctx context.Context, f Filter) ([]Detection, error) {
	query := `SELECT id, file_id, url, source_ip, attack_type, severity, confidence_score, timestamp, detected_at
	          FROM detections WHERE 1=1`
	var args []any
	if f.AttackType != "" {
		query += ` AND attack_type = ?`
		args = append(args, f.AttackType)
	}
	if f.SourceIP != "" {
		query += ` AND source_ip = ?`
		args = append(args, f.SourceIP)
	}
	if f.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, f.Severity)
	}
	if f.FileID != "" {
		query += ` AND file_id = ?`
		args = append(args, f.FileID)
	}
	query += ` ORDER BY detected_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dets []Detection
	for rows.Next() {
		var d Detection
		var sourceIP, timestamp sql.NullString
		if err := rows.Scan(&d.ID, &d.FileID, &d.URL, &sourceIP, &d.AttackType,
			&d.Severity, &d.ConfidenceScore, &timestamp, &d.DetectedAt); err != nil {
			return nil, err
		}
		d.SourceIP = sourceIP.String
		d.Timestamp = timestamp.String
		dets = append(dets, d)
	}
	return dets, rows.Err()
}

// CountDetections returns the number of detections for a file, or all
// detections if fileID is empty.
func (s *Store) CountDetections(ctx context.Context, fileID string) (int, error) {
	var count int
	var err error
	if fileID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM detections WHERE file_id = ?`, fileID).Scan(&count)
	}
	return count, err
}

// GetFileEntry returns a file entry by ID. Returns nil, nil if not found.
func (s *Store) GetFileEntry(ctx context.Context, id string) (*FileEntry, error) {
	e := &FileEntry{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, file_type, upload_time, total_urls_processed, total_attacks_detected
		 FROM file_history WHERE id = ?`, id,
	).Scan(&e.ID, &e.FileName, &e.FileType, &e.UploadTime, &e.TotalURLsProcessed, &e.TotalAttacksDetected)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// FileHistory returns recent file entries, newest upload first.
func (s *Store) FileHistory(ctx context.Context) ([]FileEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, file_type, upload_time, total_urls_processed, total_attacks_detected
		 FROM file_history ORDER BY upload_time DESC, id DESC LIMIT ?`, historyLimit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []FileEntry
	for rows.Next() {
		var e FileEntry
		if err := rows.Scan(&e.ID, &e.FileName, &e.FileType, &e.UploadTime,
			&e.TotalURLsProcessed, &e.TotalAttacksDetected); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteFileEntry removes a file entry. CASCADE removes its detections,
// so a detection never outlives its owning file entry.
func (s *Store) DeleteFileEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM file_history WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("file entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClearAll wipes detections and file history in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM detections`); err != nil {
		return fmt.Errorf("clear detections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_history`); err != nil {
		return fmt.Errorf("clear file history: %w", err)
	}
	return tx.Commit()
}
