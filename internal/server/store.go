package server

import (
	"sync"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
)

// MemoryStore is an in-memory, append-only store of readings plus
// the single latest settings slot.
type MemoryStore struct {
	readings []*models.Reading
	settings *models.Settings
	mutex    sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		readings: make([]*models.Reading, 0, 128),
	}
}

// Append records a reading at the end of the sequence
func (ms *MemoryStore) Append(reading *models.Reading) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	ms.readings = append(ms.readings, reading.Copy())
}

// First returns copies of the first n readings in insertion order
func (ms *MemoryStore) First(n int) []*models.Reading {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if n > len(ms.readings) {
		n = len(ms.readings)
	}
	if n <= 0 {
		return []*models.Reading{}
	}

	result := make([]*models.Reading, n)
	for i := 0; i < n; i++ {
		result[i] = ms.readings[i].Copy()
	}
	return result
}

// Len returns the number of recorded readings
func (ms *MemoryStore) Len() int {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	return len(ms.readings)
}

// SetSettings replaces the current settings
func (ms *MemoryStore) SetSettings(settings *models.Settings) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.settings = settings.Copy()
}

// Settings returns a copy of the current settings, or nil if none were set
func (ms *MemoryStore) Settings() *models.Settings {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	return ms.settings.Copy()
}

// Stats returns statistics about the store
func (ms *MemoryStore) Stats() StoreStats {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	stats := StoreStats{
		TotalReadings: len(ms.readings),
		HasSettings:   ms.settings != nil,
	}
	if len(ms.readings) > 0 {
		stats.OldestReading = ms.readings[0].Timestamp
		stats.NewestReading = ms.readings[len(ms.readings)-1].Timestamp
	}
	if ms.settings != nil {
		stats.SettingsUpdated = ms.settings.SubmittedAt
	}
	return stats
}

// StoreStats contains statistics about the memory store
type StoreStats struct {
	TotalReadings   int       `json:"total_readings"`
	HasSettings     bool      `json:"has_settings"`
	SettingsUpdated time.Time `json:"settings_updated,omitempty"`
	OldestReading   time.Time `json:"oldest_reading,omitempty"`
	NewestReading   time.Time `json:"newest_reading,omitempty"`
}
