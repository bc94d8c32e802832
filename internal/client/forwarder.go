package client

import (
	"context"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/rs/zerolog"
)

// Sender is the part of Connection the Forwarder needs
type Sender interface {
	IsConnected() bool
	Send(reading *models.Reading) error
	SendBatch(readings []*models.Reading) error
}

// Forwarder moves readings from the sensor loop to the server, buffering
// them while the link is down and replaying them in batches once it is back.
type Forwarder struct {
	sender        Sender
	buffer        *ReadingBuffer
	batchSize     int
	flushInterval time.Duration
	logger        zerolog.Logger
}

// NewForwarder creates a forwarder over sender and buffer
func NewForwarder(sender Sender, buffer *ReadingBuffer, batchSize int, logger zerolog.Logger) *Forwarder {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Forwarder{
		sender:        sender,
		buffer:        buffer,
		batchSize:     batchSize,
		flushInterval: time.Second,
		logger:        logger,
	}
}

// Run forwards readings until ctx is cancelled or readings is closed
func (f *Forwarder) Run(ctx context.Context, readings <-chan *models.Reading) {
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			f.Forward(reading)
		case <-ticker.C:
			f.Flush()
		}
	}
}

// Forward sends reading immediately when possible and buffers it otherwise.
// Buffered readings always go first so the server sees them in order.
func (f *Forwarder) Forward(reading *models.Reading) {
	if f.Flush() && f.sender.IsConnected() {
		err := f.sender.Send(reading)
		if err == nil {
			return
		}
		f.logger.Warn().Err(err).Msg("Send failed, buffering reading")
	}
	if !f.buffer.Push(reading) {
		f.logger.Warn().Str("buffer", f.buffer.String()).Msg("Buffer full, reading dropped")
	}
}

// Flush replays buffered readings. It reports whether the buffer is empty afterwards.
func (f *Forwarder) Flush() bool {
	for !f.buffer.IsEmpty() {
		if !f.sender.IsConnected() {
			return false
		}
		batch := f.buffer.PopBatch(f.batchSize)
		if err := f.sender.SendBatch(batch); err != nil {
			f.logger.Warn().Err(err).Int("count", len(batch)).Msg("Batch send failed, requeueing")
			f.buffer.Requeue(batch)
			return false
		}
	}
	return true
}
