package storage

import (
	"sync"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/rs/zerolog"
)

// BatchInserter persists a batch of archive records
type BatchInserter interface {
	InsertBatch(records []*models.ArchiveRecord) error
}

// ArchiveObserver is told about queue drops, flushes and prunes
type ArchiveObserver interface {
	ArchiveDropped()
	ArchiveFlushed(records int, err error)
	ArchivePruned(deleted int64, err error)
}

type nopObserver struct{}

func (nopObserver) ArchiveDropped()            {}
func (nopObserver) ArchiveFlushed(int, error)  {}
func (nopObserver) ArchivePruned(int64, error) {}

// DBWriterConfig holds configuration for the async writer
type DBWriterConfig struct {
	BatchSize   int           // records per insert (default: 100)
	FlushPeriod time.Duration // max age of a partial batch (default: 5s)
	ChannelSize int           // queue capacity (default: 1000)
	Observer    ArchiveObserver
}

// DefaultDBWriterConfig returns the writer defaults
func DefaultDBWriterConfig() DBWriterConfig {
	return DBWriterConfig{
		BatchSize:   100,
		FlushPeriod: 5 * time.Second,
		ChannelSize: 1000,
	}
}

func (c DBWriterConfig) withDefaults() DBWriterConfig {
	d := DefaultDBWriterConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FlushPeriod <= 0 {
		c.FlushPeriod = d.FlushPeriod
	}
	if c.ChannelSize <= 0 {
		c.ChannelSize = d.ChannelSize
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}

// DBWriterStats is a snapshot of writer counters
type DBWriterStats struct {
	TotalWritten  int64     `json:"total_written"`
	TotalBatches  int64     `json:"total_batches"`
	TotalErrors   int64     `json:"total_errors"`
	TotalDropped  int64     `json:"total_dropped"`
	LastWriteTime time.Time `json:"last_write_time,omitempty"`
	QueueLength   int       `json:"queue_length"`
}

// DBWriter takes archive records off the request path. A single goroutine
// owns the pending batch and inserts it when it is full, when the flush
// period elapses, and once more on Stop.
type DBWriter struct {
	inserter BatchInserter
	cfg      DBWriterConfig
	logger   zerolog.Logger
	queue    chan *models.ArchiveRecord
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once

	stopMu  sync.RWMutex
	stopped bool

	mu    sync.RWMutex
	stats DBWriterStats
}

// NewDBWriter creates a writer over inserter and starts its goroutine
func NewDBWriter(inserter BatchInserter, cfg DBWriterConfig, logger zerolog.Logger) *DBWriter {
	cfg = cfg.withDefaults()
	w := &DBWriter{
		inserter: inserter,
		cfg:      cfg,
		logger:   logger,
		queue:    make(chan *models.ArchiveRecord, cfg.ChannelSize),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go w.loop()

	logger.Info().
		Int("batch_size", cfg.BatchSize).
		Dur("flush_period", cfg.FlushPeriod).
		Int("channel_size", cfg.ChannelSize).
		Msg("Archive writer started")
	return w
}

// Write enqueues record without blocking. It reports false when the
// queue is full or the writer has stopped, and the record was dropped.
func (w *DBWriter) Write(record *models.ArchiveRecord) bool {
	w.stopMu.RLock()
	stopped := w.stopped
	if !stopped {
		select {
		case w.queue <- record:
			w.stopMu.RUnlock()
			return true
		default:
		}
	}
	w.stopMu.RUnlock()

	w.mu.Lock()
	w.stats.TotalDropped++
	w.mu.Unlock()
	w.cfg.Observer.ArchiveDropped()
	if stopped {
		w.logger.Warn().Msg("Archive writer stopped, record dropped")
	} else {
		w.logger.Warn().Int("queue_capacity", cap(w.queue)).Msg("Archive queue full, record dropped")
	}
	return false
}

func (w *DBWriter) loop() {
	defer close(w.finished)

	ticker := time.NewTicker(w.cfg.FlushPeriod)
	defer ticker.Stop()

	pending := make([]*models.ArchiveRecord, 0, w.cfg.BatchSize)
	for {
		select {
		case rec := <-w.queue:
			pending = append(pending, rec)
			if len(pending) < w.cfg.BatchSize {
				continue
			}
		case <-ticker.C:
		case <-w.done:
			pending = w.drain(pending)
			w.insert(pending)
			w.logger.Info().Msg("Archive writer stopped")
			return
		}

		w.insert(pending)
		pending = pending[:0]
	}
}

// drain moves everything still queued onto pending
func (w *DBWriter) drain(pending []*models.ArchiveRecord) []*models.ArchiveRecord {
	for {
		select {
		case rec := <-w.queue:
			pending = append(pending, rec)
		default:
			return pending
		}
	}
}

func (w *DBWriter) insert(batch []*models.ArchiveRecord) {
	if len(batch) == 0 {
		return
	}

	err := w.inserter.InsertBatch(batch)
	w.cfg.Observer.ArchiveFlushed(len(batch), err)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.TotalErrors++
		w.logger.Error().Err(err).Int("records", len(batch)).Msg("Archive insert failed")
		return
	}
	w.stats.TotalWritten += int64(len(batch))
	w.stats.TotalBatches++
	w.stats.LastWriteTime = time.Now()
	w.logger.Debug().Int("records", len(batch)).Msg("Archive batch written")
}

// Stop inserts whatever is queued and waits for the writer goroutine.
// Writes after Stop are dropped. It is safe to call more than once.
func (w *DBWriter) Stop() {
	w.stopOnce.Do(func() {
		w.stopMu.Lock()
		w.stopped = true
		w.stopMu.Unlock()
		close(w.done)
	})
	<-w.finished
}

// Stats returns a snapshot of the writer counters
func (w *DBWriter) Stats() DBWriterStats {
	w.mu.RLock()
	s := w.stats
	w.mu.RUnlock()
	s.QueueLength = len(w.queue)
	return s
}
