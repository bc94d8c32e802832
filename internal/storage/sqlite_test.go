package storage

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/comfort-hub/internal/models"
)

// setupTestDB creates a temporary archive for testing
func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "archive.db")
	store, err := NewSQLiteStore(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// createTestRecord creates a record with the given reading and decision
func createTestRecord(temp float64, presence int, fan, light models.Switch, ts time.Time) *models.ArchiveRecord {
	return &models.ArchiveRecord{
		Reading:  models.Reading{Temperature: temp, Presence: presence, Timestamp: ts},
		Decision: models.Decision{Fan: fan, Light: light},
	}
}

func TestNewSQLiteStore_InvalidPath(t *testing.T) {
	_, err := NewSQLiteStore("/nonexistent/path/that/cannot/exist/archive.db", zerolog.Nop())
	if err == nil {
		t.Fatal("Expected error for invalid path")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestDB(t)

	for i := 0; i < 3; i++ {
		if err := store.Migrate(); err != nil {
			t.Fatalf("Migrate call %d failed: %v", i+1, err)
		}
	}
	v, err := store.schemaVersion()
	if err != nil {
		t.Fatalf("schemaVersion failed: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("user_version = %d, want %d", v, len(migrations))
	}
}

func TestStorageStats_Empty(t *testing.T) {
	store := setupTestDB(t)

	stats, err := store.GetStorageStats()
	if err != nil {
		t.Fatalf("GetStorageStats failed: %v", err)
	}
	if stats.TotalRecords != 0 || !stats.OldestRecord.IsZero() || !stats.NewestRecord.IsZero() {
		t.Errorf("empty archive stats = %+v", stats)
	}
}

func TestInsertRecord(t *testing.T) {
	store := setupTestDB(t)

	ts := time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)
	rec := createTestRecord(26.5, 1, models.SwitchOn, models.SwitchOn, ts)
	if err := store.InsertRecord(rec); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	latest, err := store.GetLatestRecord()
	if err != nil {
		t.Fatalf("GetLatestRecord failed: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected a record")
	}
	if latest.Reading.Temperature != 26.5 || latest.Reading.Presence != 1 {
		t.Errorf("reading = %+v", latest.Reading)
	}
	if latest.Decision != rec.Decision {
		t.Errorf("decision = %+v, want %+v", latest.Decision, rec.Decision)
	}
	if !latest.Reading.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", latest.Reading.Timestamp, ts)
	}
}

func TestInsertRecord_StoresUTC(t *testing.T) {
	store := setupTestDB(t)

	kingston := time.FixedZone("EST", -5*60*60)
	ts := time.Date(2024, 6, 1, 22, 0, 0, 0, kingston)
	if err := store.InsertRecord(createTestRecord(20, 0, models.SwitchOff, models.SwitchOff, ts)); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	latest, _ := store.GetLatestRecord()
	if !latest.Reading.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want instant %v", latest.Reading.Timestamp, ts)
	}
}

func TestInsertBatch(t *testing.T) {
	store := setupTestDB(t)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	var records []*models.ArchiveRecord
	for i := 0; i < 10; i++ {
		records = append(records, createTestRecord(float64(20+i), i%2, models.SwitchOff, models.SwitchOff, base.Add(time.Duration(i)*time.Minute)))
	}

	if err := store.InsertBatch(records); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	stats, err := store.GetStorageStats()
	if err != nil {
		t.Fatalf("GetStorageStats failed: %v", err)
	}
	if stats.TotalRecords != 10 {
		t.Errorf("Expected 10 records, got %d", stats.TotalRecords)
	}
	if !stats.OldestRecord.Equal(base) {
		t.Errorf("oldest = %v, want %v", stats.OldestRecord, base)
	}
	if !stats.NewestRecord.Equal(base.Add(9 * time.Minute)) {
		t.Errorf("newest = %v, want %v", stats.NewestRecord, base.Add(9*time.Minute))
	}
}

func TestInsertBatch_Empty(t *testing.T) {
	store := setupTestDB(t)

	if err := store.InsertBatch(nil); err != nil {
		t.Errorf("InsertBatch(nil) should not error: %v", err)
	}
	if err := store.InsertBatch([]*models.ArchiveRecord{}); err != nil {
		t.Errorf("InsertBatch(empty) should not error: %v", err)
	}
}

func TestGetRecordsInRange(t *testing.T) {
	store := setupTestDB(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24; i++ {
		rec := createTestRecord(float64(i), 1, models.SwitchOff, models.SwitchOff, base.Add(time.Duration(i)*time.Hour))
		if err := store.InsertRecord(rec); err != nil {
			t.Fatalf("InsertRecord failed: %v", err)
		}
	}

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		limit     int
		wantCount int
		wantFirst float64
	}{
		{"whole day", base, base.Add(23 * time.Hour), 100, 24, 0},
		{"morning", base.Add(6 * time.Hour), base.Add(11 * time.Hour), 100, 6, 6},
		{"limited", base, base.Add(23 * time.Hour), 5, 5, 0},
		{"empty range", base.Add(48 * time.Hour), base.Add(72 * time.Hour), 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.GetRecordsInRange(tt.start, tt.end, tt.limit)
			if err != nil {
				t.Fatalf("GetRecordsInRange failed: %v", err)
			}
			if len(records) != tt.wantCount {
				t.Fatalf("Expected %d records, got %d", tt.wantCount, len(records))
			}
			if tt.wantCount > 0 && records[0].Reading.Temperature != tt.wantFirst {
				t.Errorf("first temperature = %.1f, want %.1f", records[0].Reading.Temperature, tt.wantFirst)
			}
		})
	}
}

func TestGetLatestRecord_Empty(t *testing.T) {
	store := setupTestDB(t)

	rec, err := store.GetLatestRecord()
	if err != nil {
		t.Fatalf("GetLatestRecord failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Expected nil record, got %+v", rec)
	}
}

func TestGetDailyStats(t *testing.T) {
	store := setupTestDB(t)

	day1 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	records := []*models.ArchiveRecord{
		createTestRecord(20, 0, models.SwitchOff, models.SwitchOff, day1),
		createTestRecord(26, 1, models.SwitchOn, models.SwitchOff, day1.Add(time.Hour)),
		createTestRecord(23, 2, models.SwitchOff, models.SwitchOn, day1.Add(2*time.Hour)),
		createTestRecord(30, 1, models.SwitchOn, models.SwitchOn, day2),
	}
	if err := store.InsertBatch(records); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	stats, err := store.GetDailyStats(day1.Add(-time.Hour), day2.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(stats))
	}

	// newest day first
	if stats[0].ReadingCount != 1 || stats[0].MaxTemperature != 30 {
		t.Errorf("day 2 = %+v", stats[0])
	}

	d1 := stats[1]
	if !d1.Date.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", d1.Date)
	}
	if d1.MinTemperature != 20 || d1.MaxTemperature != 26 {
		t.Errorf("min/max = %.1f/%.1f, want 20/26", d1.MinTemperature, d1.MaxTemperature)
	}
	if d1.AvgTemperature < 22.99 || d1.AvgTemperature > 23.01 {
		t.Errorf("avg = %.2f, want 23", d1.AvgTemperature)
	}
	if d1.PresentCount != 2 || d1.FanOnCount != 1 || d1.LightOnCount != 1 || d1.ReadingCount != 3 {
		t.Errorf("counts = %+v", d1)
	}
}

func TestGetDailyStats_Empty(t *testing.T) {
	store := setupTestDB(t)

	stats, err := store.GetDailyStats(time.Now().Add(-24*time.Hour), time.Now())
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if stats == nil || len(stats) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", stats)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	store := setupTestDB(t)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ages := []int{1, 5, 10, 29, 31, 45, 90}
	for _, days := range ages {
		rec := createTestRecord(22, 1, models.SwitchOff, models.SwitchOff, now.AddDate(0, 0, -days))
		if err := store.InsertRecord(rec); err != nil {
			t.Fatalf("InsertRecord failed: %v", err)
		}
	}

	deleted, err := store.DeleteOlderThan(30)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted, got %d", deleted)
	}

	stats, _ := store.GetStorageStats()
	if stats.TotalRecords != 4 {
		t.Errorf("Expected 4 remaining, got %d", stats.TotalRecords)
	}
}

func TestGetStorageStats_Empty(t *testing.T) {
	store := setupTestDB(t)

	stats, err := store.GetStorageStats()
	if err != nil {
		t.Fatalf("GetStorageStats failed: %v", err)
	}
	if stats.TotalRecords != 0 {
		t.Errorf("Expected 0 records, got %d", stats.TotalRecords)
	}
	if !stats.OldestRecord.IsZero() {
		t.Errorf("Expected zero oldest record, got %v", stats.OldestRecord)
	}
	if stats.DatabaseSizeMB <= 0 {
		t.Errorf("Expected positive database size, got %f", stats.DatabaseSizeMB)
	}
	if stats.SchemaVersion != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", stats.SchemaVersion, len(migrations))
	}
}

func TestConcurrentInserts(t *testing.T) {
	store := setupTestDB(t)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				rec := createTestRecord(float64(worker), j, models.SwitchOff, models.SwitchOff, time.Now())
				if err := store.InsertRecord(rec); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent insert failed: %v", err)
	}

	stats, _ := store.GetStorageStats()
	if stats.TotalRecords != 100 {
		t.Errorf("Expected 100 records, got %d", stats.TotalRecords)
	}
}

func BenchmarkInsertBatch(b *testing.B) {
	store, err := NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"), zerolog.Nop())
	if err != nil {
		b.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	batch := make([]*models.ArchiveRecord, 100)
	for i := range batch {
		batch[i] = createTestRecord(22.5, 1, models.SwitchOn, models.SwitchOff, time.Now())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.InsertBatch(batch)
	}
}
