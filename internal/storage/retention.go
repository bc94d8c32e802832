package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pruner deletes archive records older than a number of days
type Pruner interface {
	DeleteOlderThan(days int) (int64, error)
}

// RetentionCleanerConfig holds configuration for the cleaner
type RetentionCleanerConfig struct {
	RetentionDays int           // days of archive to keep (default: 30)
	CleanupPeriod time.Duration // time between prunes (default: 1h)
	Observer      ArchiveObserver
}

// DefaultRetentionCleanerConfig returns the cleaner defaults
func DefaultRetentionCleanerConfig() RetentionCleanerConfig {
	return RetentionCleanerConfig{
		RetentionDays: 30,
		CleanupPeriod: time.Hour,
	}
}

// RetentionCleanerStats is a snapshot of cleaner counters
type RetentionCleanerStats struct {
	TotalDeleted    int64     `json:"total_deleted"`
	TotalCleanups   int64     `json:"total_cleanups"`
	TotalFailures   int64     `json:"total_failures"`
	LastCleanup     time.Time `json:"last_cleanup,omitempty"`
	LastDeleteCount int64     `json:"last_delete_count"`
	RetentionDays   int       `json:"retention_days"`
}

// RetentionCleaner prunes the archive on a fixed period until its
// context is cancelled.
type RetentionCleaner struct {
	pruner Pruner
	cfg    RetentionCleanerConfig
	logger zerolog.Logger

	mu    sync.Mutex
	stats RetentionCleanerStats
}

// NewRetentionCleaner creates a cleaner. Nothing is pruned until Run or RunNow.
func NewRetentionCleaner(pruner Pruner, cfg RetentionCleanerConfig, logger zerolog.Logger) *RetentionCleaner {
	d := DefaultRetentionCleanerConfig()
	if cfg.CleanupPeriod <= 0 {
		logger.Warn().
			Dur("provided_period", cfg.CleanupPeriod).
			Dur("default_period", d.CleanupPeriod).
			Msg("Invalid cleanup period, using default")
		cfg.CleanupPeriod = d.CleanupPeriod
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = d.RetentionDays
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}

	return &RetentionCleaner{
		pruner: pruner,
		cfg:    cfg,
		logger: logger,
		stats:  RetentionCleanerStats{RetentionDays: cfg.RetentionDays},
	}
}

// Run prunes once immediately and then every cleanup period. It returns
// when ctx is done.
func (c *RetentionCleaner) Run(ctx context.Context) {
	c.logger.Info().
		Int("retention_days", c.cfg.RetentionDays).
		Dur("cleanup_period", c.cfg.CleanupPeriod).
		Msg("Retention cleaner running")

	ticker := time.NewTicker(c.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		c.RunNow()
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Retention cleaner stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunNow prunes the archive once and returns the number of deleted records
func (c *RetentionCleaner) RunNow() (int64, error) {
	deleted, err := c.pruner.DeleteOlderThan(c.cfg.RetentionDays)
	c.cfg.Observer.ArchivePruned(deleted, err)

	c.mu.Lock()
	c.stats.TotalCleanups++
	c.stats.LastCleanup = time.Now()
	if err != nil {
		c.stats.TotalFailures++
	} else {
		c.stats.TotalDeleted += deleted
		c.stats.LastDeleteCount = deleted
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Msg("Retention cleanup failed")
		return 0, err
	}

	event := c.logger.Debug()
	if deleted > 0 {
		event = c.logger.Info()
	}
	event.Int64("deleted", deleted).Int("retention_days", c.cfg.RetentionDays).Msg("Retention cleanup completed")
	return deleted, nil
}

// Stats returns a snapshot of the cleaner counters
func (c *RetentionCleaner) Stats() RetentionCleanerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
