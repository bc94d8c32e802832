package control

import (
	"context"
	"fmt"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/schedule"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store holds the recorded readings and the authoritative settings
type Store interface {
	Append(reading *models.Reading)
	First(n int) []*models.Reading
	Len() int
	SetSettings(settings *models.Settings)
	Settings() *models.Settings
}

// Archiver accepts records for asynchronous archiving.
// Write returns false when the record was dropped.
type Archiver interface {
	Write(record *models.ArchiveRecord) bool
}

// CommandPublisher fans decisions and settings out to other consumers
type CommandPublisher interface {
	PublishDecision(decision models.Decision, reading *models.Reading) error
	PublishSettings(settings *models.Settings, window schedule.Window) error
}

// Options holds the optional collaborators of a Controller
type Options struct {
	// Location is the process-wide zone readings are rendered in. Defaults to time.Local.
	Location *time.Location

	// Clock overrides time.Now
	Clock func() time.Time

	Archive   Archiver
	Publisher CommandPublisher
}

// SettingsResult is returned after settings are accepted
type SettingsResult struct {
	ID                string             `json:"id"`
	TargetTemperature int                `json:"target_temperature"`
	LightStart        schedule.TimeOfDay `json:"light_start"`
	LightStop         schedule.TimeOfDay `json:"light_stop"`
}

// Controller is the entry point for settings, readings and queries
type Controller struct {
	store     Store
	engine    *Engine
	archive   Archiver
	publisher CommandPublisher
	loc       *time.Location
	clock     func() time.Time
	logger    zerolog.Logger
}

// NewController creates a controller over store and engine
func NewController(store Store, engine *Engine, opts Options, logger zerolog.Logger) *Controller {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		store:     store,
		engine:    engine,
		archive:   opts.Archive,
		publisher: opts.Publisher,
		loc:       loc,
		clock:     clock,
		logger:    logger,
	}
}

// Location returns the zone readings are rendered in
func (c *Controller) Location() *time.Location {
	return c.loc
}

func (c *Controller) now() time.Time {
	return c.clock().In(c.loc)
}

// SubmitSettings validates settings by resolving their light window and,
// if that succeeds, makes them authoritative. Nothing is stored on error.
func (c *Controller) SubmitSettings(ctx context.Context, settings models.Settings) (SettingsResult, error) {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	now := c.now()
	settings.SubmittedAt = now

	window, err := c.engine.Window(ctx, &settings, now)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("light_mode", settings.LightMode).
			Str("light_duration", settings.LightDuration).
			Msg("Settings rejected")
		return SettingsResult{}, err
	}

	c.store.SetSettings(settings.Copy())

	c.logger.Info().
		Str("id", settings.ID).
		Int("target_temperature", settings.TargetTemperature).
		Str("light_mode", settings.LightMode).
		Str("light_duration", settings.LightDuration).
		Str("light_start", window.Start.String()).
		Str("light_stop", window.Stop.String()).
		Msg("Settings accepted")

	if c.publisher != nil {
		if err := c.publisher.PublishSettings(&settings, window); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to publish settings")
		}
	}

	return SettingsResult{
		ID:                settings.ID,
		TargetTemperature: settings.TargetTemperature,
		LightStart:        window.Start,
		LightStop:         window.Stop,
	}, nil
}

// CurrentSettings returns a copy of the authoritative settings
func (c *Controller) CurrentSettings() (*models.Settings, error) {
	settings := c.store.Settings()
	if settings == nil {
		return nil, ErrSettingsMissing
	}
	return settings, nil
}

// SubmitReading records reading and returns the actuator decision for it.
// Without settings nothing is recorded and ErrSettingsMissing is returned.
func (c *Controller) SubmitReading(ctx context.Context, reading models.Reading) (models.Decision, error) {
	settings := c.store.Settings()
	if settings == nil {
		return models.Decision{}, ErrSettingsMissing
	}

	now := c.now()
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now
	} else {
		reading.Timestamp = reading.Timestamp.In(c.loc)
	}
	if !reading.IsValid() {
		return models.Decision{}, fmt.Errorf("invalid reading: %s", reading.String())
	}

	c.store.Append(reading.Copy())

	decision := c.engine.Decide(ctx, settings, &reading, now)

	c.logger.Info().
		Float64("temp", reading.Temperature).
		Int("presence", reading.Presence).
		Str("fan", string(decision.Fan)).
		Str("light", string(decision.Light)).
		Msg("Reading processed")

	if c.archive != nil {
		c.archive.Write(&models.ArchiveRecord{Reading: reading, Decision: decision})
	}
	if c.publisher != nil {
		if err := c.publisher.PublishDecision(decision, &reading); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to publish decision")
		}
	}

	return decision, nil
}

// QueryReadings returns up to count readings in insertion order, oldest first.
// This is a prefix of the recorded sequence, not the most recent readings.
func (c *Controller) QueryReadings(count int) ([]*models.Reading, error) {
	if count < 1 || count > MaxQueryCount {
		return nil, ErrInvalidCount
	}
	if c.store.Len() == 0 {
		return nil, ErrNoDataAvailable
	}
	return c.store.First(count), nil
}
