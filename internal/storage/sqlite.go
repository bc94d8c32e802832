// Package storage archives readings and the decisions made for them in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/afroash/comfort-hub/internal/models"
)

// Timestamps are stored as UTC text in this layout
const sqliteTimeLayout = "2006-01-02 15:04:05"

// Store is the full archive surface
type Store interface {
	Close() error
	Migrate() error
	InsertRecord(record *models.ArchiveRecord) error
	InsertBatch(records []*models.ArchiveRecord) error
	GetRecordsInRange(start, end time.Time, limit int) ([]*models.ArchiveRecord, error)
	GetLatestRecord() (*models.ArchiveRecord, error)
	GetDailyStats(start, end time.Time) ([]DailyStat, error)
	DeleteOlderThan(days int) (int64, error)
	GetStorageStats() (*StorageStats, error)
}

var _ Store = (*SQLiteStore)(nil)

// DailyStat aggregates one UTC day of archive records
type DailyStat struct {
	Date           time.Time `json:"date"`
	MinTemperature float64   `json:"min_temperature"`
	MaxTemperature float64   `json:"max_temperature"`
	AvgTemperature float64   `json:"avg_temperature"`
	PresentCount   int       `json:"present_count"`
	FanOnCount     int       `json:"fan_on_count"`
	LightOnCount   int       `json:"light_on_count"`
	ReadingCount   int       `json:"reading_count"`
}

// StorageStats describes the archive database
type StorageStats struct {
	TotalRecords   int64     `json:"total_records"`
	OldestRecord   time.Time `json:"oldest_record,omitempty"`
	NewestRecord   time.Time `json:"newest_record,omitempty"`
	DatabaseSizeMB float64   `json:"database_size_mb"`
	SchemaVersion  int       `json:"schema_version"`
}

// migrations are applied in order; PRAGMA user_version holds how many ran
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS archive (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		temperature REAL    NOT NULL,
		presence    INTEGER NOT NULL,
		fan         TEXT    NOT NULL,
		light       TEXT    NOT NULL,
		recorded_at TEXT    NOT NULL,
		created_at  TEXT    DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_archive_recorded ON archive(recorded_at)`,
}

const (
	recordColumns = `temperature, presence, fan, light, recorded_at`

	insertRecordSQL = `INSERT INTO archive (` + recordColumns + `) VALUES (?, ?, ?, ?, ?)`

	rangeSQL = `SELECT ` + recordColumns + ` FROM archive
		WHERE recorded_at BETWEEN ? AND ?
		ORDER BY recorded_at ASC, id ASC
		LIMIT ?`

	latestSQL = `SELECT ` + recordColumns + ` FROM archive
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`

	dailySQL = `SELECT
			date(recorded_at) AS day,
			MIN(temperature), MAX(temperature), AVG(temperature),
			SUM(presence != 0),
			SUM(fan = 'on'),
			SUM(light = 'on'),
			COUNT(*)
		FROM archive
		WHERE recorded_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day DESC`
)

// SQLiteStore is the archive on a single SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens the archive at dbPath and brings its schema up to date
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", dbPath, err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open archive %s: %w", dbPath, err)
	}

	s := &SQLiteStore{db: db, logger: logger, now: time.Now}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("path", dbPath).Msg("Archive store initialized")
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow(`PRAGMA user_version`).Scan(&v)
	return v, err
}

// Migrate applies any migrations the database has not seen yet
func (s *SQLiteStore) Migrate() error {
	version, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		s.logger.Debug().Int("version", i+1).Msg("Archive migration applied")
	}
	return nil
}

func (s *SQLiteStore) InsertRecord(record *models.ArchiveRecord) error {
	if _, err := s.db.Exec(insertRecordSQL, recordArgs(record)...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// InsertBatch writes records in one transaction; either all land or none do
func (s *SQLiteStore) InsertBatch(records []*models.ArchiveRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(insertRecordSQL)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		if _, err = stmt.Exec(recordArgs(record)...); err != nil {
			return fmt.Errorf("insert batch record %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func recordArgs(record *models.ArchiveRecord) []any {
	return []any{
		record.Reading.Temperature,
		record.Reading.Presence,
		string(record.Decision.Fan),
		string(record.Decision.Light),
		formatTime(record.Reading.Timestamp),
	}
}

// GetRecordsInRange returns up to limit records recorded within
// [start, end], oldest first.
func (s *SQLiteStore) GetRecordsInRange(start, end time.Time, limit int) ([]*models.ArchiveRecord, error) {
	rows, err := s.db.Query(rangeSQL, formatTime(start), formatTime(end), limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ArchiveRecord, 0, min(max(limit, 0), 256))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetLatestRecord returns the most recent record, or nil for an empty archive
func (s *SQLiteStore) GetLatestRecord() (*models.ArchiveRecord, error) {
	rec, err := scanRecord(s.db.QueryRow(latestSQL))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("latest record: %w", err)
	}
	return rec, nil
}

// GetDailyStats returns per-day aggregates for [start, end], newest day first
func (s *SQLiteStore) GetDailyStats(start, end time.Time) ([]DailyStat, error) {
	rows, err := s.db.Query(dailySQL, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	stats := []DailyStat{}
	for rows.Next() {
		var (
			st  DailyStat
			day string
		)
		if err := rows.Scan(&day,
			&st.MinTemperature, &st.MaxTemperature, &st.AvgTemperature,
			&st.PresentCount, &st.FanOnCount, &st.LightOnCount, &st.ReadingCount,
		); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		if st.Date, err = time.Parse(time.DateOnly, day); err != nil {
			return nil, fmt.Errorf("daily stat date %q: %w", day, err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// DeleteOlderThan removes records whose reading is more than days old
func (s *SQLiteStore) DeleteOlderThan(days int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	res, err := s.db.Exec(`DELETE FROM archive WHERE recorded_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune archive: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune archive: %w", err)
	}

	s.logger.Debug().Int("days", days).Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Pruned archive")
	return deleted, nil
}

func (s *SQLiteStore) GetStorageStats() (*StorageStats, error) {
	var (
		st             StorageStats
		oldest, newest sql.NullString
	)
	err := s.db.QueryRow(`SELECT COUNT(*), MIN(recorded_at), MAX(recorded_at) FROM archive`).
		Scan(&st.TotalRecords, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("archive stats: %w", err)
	}
	if oldest.Valid {
		st.OldestRecord, _ = parseTime(oldest.String)
	}
	if newest.Valid {
		st.NewestRecord, _ = parseTime(newest.String)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow(`SELECT page_count, page_size FROM pragma_page_count(), pragma_page_size()`).Scan(&pageCount, &pageSize); err == nil {
		st.DatabaseSizeMB = float64(pageCount*pageSize) / (1 << 20)
	}
	if st.SchemaVersion, err = s.schemaVersion(); err != nil {
		return nil, fmt.Errorf("archive stats: %w", err)
	}
	return &st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ArchiveRecord, error) {
	var (
		rec            models.ArchiveRecord
		fan, light, ts string
	)
	if err := row.Scan(&rec.Reading.Temperature, &rec.Reading.Presence, &fan, &light, &ts); err != nil {
		return nil, err
	}
	rec.Decision = models.Decision{Fan: models.Switch(fan), Light: models.Switch(light)}

	t, err := parseTime(ts)
	if err != nil {
		return nil, err
	}
	rec.Reading.Timestamp = t
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseTime accepts the stored layout and the RFC 3339 forms the driver may return
func parseTime(ts string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised archive timestamp %q", ts)
}
