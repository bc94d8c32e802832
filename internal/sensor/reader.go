package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afroash/comfort-hub/internal/gpio"
	"github.com/afroash/comfort-hub/internal/models"
	"github.com/rs/zerolog"
)

// Reader samples temperature and presence on a fixed interval
type Reader struct {
	temperature TemperatureSensor
	presence    gpio.PresenceReader
	interval    time.Duration
	logger      zerolog.Logger
	readings    chan *models.Reading
	now         func() time.Time
}

// NewReader creates a new sensor reader
func NewReader(temperature TemperatureSensor, presence gpio.PresenceReader, interval time.Duration, logger zerolog.Logger) *Reader {
	return &Reader{
		temperature: temperature,
		presence:    presence,
		interval:    interval,
		logger:      logger,
		readings:    make(chan *models.Reading, 10),
		now:         time.Now,
	}
}

// Start begins periodic reading until ctx is cancelled
func (r *Reader) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.readAndPublish(ctx)
		}
	}
}

// ReadOnce samples both sensors
func (r *Reader) ReadOnce() (*models.Reading, error) {
	temperature, err := r.temperature.ReadTemperature()
	if err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}
	present, err := r.presence.Present()
	if err != nil {
		return nil, fmt.Errorf("presence: %w", err)
	}
	presence := 0
	if present {
		presence = 1
	}
	return &models.Reading{
		Temperature: temperature,
		Presence:    presence,
		Timestamp:   r.now(),
	}, nil
}

func (r *Reader) readAndPublish(ctx context.Context) {
	reading, err := r.ReadOnce()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read from sensors")
		return
	}
	select {
	case r.readings <- reading:
		r.logger.Debug().Msgf("read from sensors: %s", reading.String())
	case <-ctx.Done():
	}
}

// Readings returns the channel where readings are published
func (r *Reader) Readings() <-chan *models.Reading {
	return r.readings
}

// Close releases both sensors
func (r *Reader) Close() error {
	return errors.Join(r.temperature.Close(), r.presence.Close())
}
