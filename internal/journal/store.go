package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"uplink/internal/config"
)

// ErrNotFound indicates the requested recording does not exist.
var ErrNotFound = errors.New("recording not found")

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.JournalDB
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file the store was opened against.
func (s *Store) Path() string {
	return s.path
}

// NewRecording inserts a freshly detected recording.
func (s *Store) NewRecording(ctx context.Context, cycleID, baseName, sourcePath string, sizeBytes int64) (*Recording, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO recordings (
            cycle_id, base_name, source_path, status, size_bytes, detected_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		cycleID,
		baseName,
		sourcePath,
		StatusDetected,
		sizeBytes,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read insert id: %w", err)
	}

	return &Recording{
		ID:         id,
		CycleID:    cycleID,
		BaseName:   baseName,
		SourcePath: sourcePath,
		Status:     StatusDetected,
		SizeBytes:  sizeBytes,
		DetectedAt: now,
	}, nil
}

// GetByID fetches a recording by primary key.
func (s *Store) GetByID(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// FindByCycleID fetches the recording created for a given watch cycle.
func (s *Store) FindByCycleID(ctx context.Context, cycleID string) (*Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE cycle_id = ? ORDER BY id DESC LIMIT 1`, cycleID)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cycle %s", ErrNotFound, cycleID)
	}
	if err != nil {
		return nil, fmt.Errorf("find recording by cycle: %w", err)
	}
	return rec, nil
}

// Update persists every mutable column of the recording.
func (s *Store) Update(ctx context.Context, rec *Recording) error {
	if rec == nil {
		return errors.New("nil recording")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE recordings SET
            cycle_id = ?, base_name = ?, source_path = ?, status = ?,
            share_url = ?, error_message = ?, size_bytes = ?, completed_at = ?
        WHERE id = ?`,
		rec.CycleID,
		rec.BaseName,
		rec.SourcePath,
		rec.Status,
		nullableString(rec.ShareURL),
		nullableString(rec.ErrorMessage),
		rec.SizeBytes,
		nullableTime(rec.CompletedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recording rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, rec.ID)
	}
	return nil
}

// MarkUploading flags the recording as having an upload cycle in flight.
func (s *Store) MarkUploading(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusUploading, "", "", nil)
}

// MarkShared records a successful upload and the public URL it produced.
func (s *Store) MarkShared(ctx context.Context, id int64, shareURL string, sizeBytes int64) error {
	if err := s.transition(ctx, id, StatusShared, shareURL, "", completedNow()); err != nil {
		return err
	}
	if sizeBytes > 0 {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE recordings SET size_bytes = ? WHERE id = ?`, sizeBytes, id); err != nil {
			return fmt.Errorf("update recording size: %w", err)
		}
	}
	return nil
}

// MarkFailed records an upload failure with its message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.transition(ctx, id, StatusFailed, "", message, completedNow())
}

// MarkAborted records that tracking stopped before an upload completed.
func (s *Store) MarkAborted(ctx context.Context, id int64, reason string) error {
	return s.transition(ctx, id, StatusAborted, "", reason, completedNow())
}

func (s *Store) transition(ctx context.Context, id int64, status Status, shareURL, message string, completedAt *time.Time) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE recordings SET status = ?, share_url = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		status,
		nullableString(shareURL),
		nullableString(message),
		nullableTime(completedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark recording %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark recording rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// Recent returns the newest recordings first, up to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Recording, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent recordings: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// RecordingsByStatus returns recordings in the given status, newest first.
func (s *Store) RecordingsByStatus(ctx context.Context, status Status) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE status = ? ORDER BY id DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("list recordings by status: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// AbandonInFlight marks every non-terminal recording aborted. The daemon calls
// this on startup so rows from a crashed run don't read as still uploading.
func (s *Store) AbandonInFlight(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE recordings SET status = ?, error_message = ?, completed_at = ?
        WHERE status IN (?, ?)`,
		StatusAborted,
		WatcherStopReason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusDetected,
		StatusUploading,
	)
	if err != nil {
		return 0, fmt.Errorf("abandon in-flight recordings: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns per-status row counts, including zero entries for every
// known status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM recordings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var statusStr string
		var count int
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(statusStr)] = count
	}
	return stats, rows.Err()
}

// Health aggregates journal counts for status reporting.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Shared:  stats[StatusShared],
		Failed:  stats[StatusFailed],
		Aborted: stats[StatusAborted],
	}
	for status, count := range stats {
		summary.Total += count
		if !status.IsTerminal() {
			summary.InFlight += count
		}
	}
	return summary, nil
}

// Clear removes every journal row and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings`)
	if err != nil {
		return 0, fmt.Errorf("clear journal: %w", err)
	}
	return res.RowsAffected()
}

const recordingColumns = "id, cycle_id, base_name, source_path, status, share_url, error_message, size_bytes, detected_at, completed_at"

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		id           int64
		cycleID      sql.NullString
		baseName     sql.NullString
		sourcePath   sql.NullString
		statusStr    string
		shareURL     sql.NullString
		errorMessage sql.NullString
		sizeBytes    sql.NullInt64
		detectedRaw  sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&cycleID,
		&baseName,
		&sourcePath,
		&statusStr,
		&shareURL,
		&errorMessage,
		&sizeBytes,
		&detectedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Recording{
		ID:           id,
		CycleID:      cycleID.String,
		BaseName:     baseName.String,
		SourcePath:   sourcePath.String,
		Status:       Status(statusStr),
		ShareURL:     shareURL.String,
		ErrorMessage: errorMessage.String,
		SizeBytes:    sizeBytes.Int64,
	}

	if detected, err := parseTimeString(detectedRaw.String); err == nil {
		rec.DetectedAt = detected
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			rec.CompletedAt = &completed
		}
	}
	return rec, nil
}

func collectRecordings(rows *sql.Rows) ([]*Recording, error) {
	var recordings []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}

func completedNow() *time.Time {
	now := time.Now().UTC()
	return &now
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// FormatStatuses renders a status list for CLI help text.
func FormatStatuses() string {
	parts := make([]string, len(allStatuses))
	for i, status := range allStatuses {
		parts[i] = string(status)
	}
	return strings.Join(parts, ", ")
}
