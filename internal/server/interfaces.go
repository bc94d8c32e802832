package server

import (
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/storage"
)

// StatsSource reports live store statistics
type StatsSource interface {
	Stats() StoreStats
}

// ArchiveStore is the read side of the reading archive served under /api/archive
type ArchiveStore interface {
	GetRecordsInRange(start, end time.Time, limit int) ([]*models.ArchiveRecord, error)
	GetLatestRecord() (*models.ArchiveRecord, error)
	GetDailyStats(start, end time.Time) ([]storage.DailyStat, error)
	GetStorageStats() (*storage.StorageStats, error)
}

var (
	_ StatsSource  = (*MemoryStore)(nil)
	_ ArchiveStore = (*storage.SQLiteStore)(nil)
)
