// Package control holds the actuation logic: it decides fan and light
// commands for each reading and owns the settings/readings workflow.
package control

import (
	"context"
	"errors"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/schedule"
	"github.com/rs/zerolog"
)

// WindowResolver resolves settings into a light window
type WindowResolver interface {
	Resolve(ctx context.Context, settings *models.Settings, now time.Time) (schedule.Window, error)
}

// Observer receives decision outcomes, typically for metrics
type Observer interface {
	DecisionMade(decision models.Decision)
	ScheduleDegraded(reason string)
}

// EngineConfig holds decision engine options
type EngineConfig struct {
	// WrapMidnight makes windows that cross midnight match on both sides of it.
	// When false, start <= now <= stop is applied literally.
	WrapMidnight bool
}

// Engine decides actuator states for a reading
type Engine struct {
	resolver     WindowResolver
	wrapMidnight bool
	observer     Observer
	logger       zerolog.Logger
}

// NewEngine creates a decision engine
func NewEngine(resolver WindowResolver, config EngineConfig, observer Observer, logger zerolog.Logger) *Engine {
	return &Engine{
		resolver:     resolver,
		wrapMidnight: config.WrapMidnight,
		observer:     observer,
		logger:       logger,
	}
}

// FanState returns on when the room is occupied and at or above the target temperature
func FanState(settings *models.Settings, reading *models.Reading) models.Switch {
	on := reading.Temperature >= float64(settings.TargetTemperature) && reading.IsPresent()
	return models.SwitchOf(on)
}

// Window resolves the light window for settings on the day of now
func (e *Engine) Window(ctx context.Context, settings *models.Settings, now time.Time) (schedule.Window, error) {
	return e.resolver.Resolve(ctx, settings, now)
}

// Decide computes the fan and light commands for reading at local time now.
// A failure to resolve the light window never fails the decision: the light
// is reported off and the failure is logged.
func (e *Engine) Decide(ctx context.Context, settings *models.Settings, reading *models.Reading, now time.Time) models.Decision {
	decision := models.Decision{
		Fan:   FanState(settings, reading),
		Light: e.lightState(ctx, settings, reading, now),
	}
	if e.observer != nil {
		e.observer.DecisionMade(decision)
	}
	return decision
}

func (e *Engine) lightState(ctx context.Context, settings *models.Settings, reading *models.Reading, now time.Time) models.Switch {
	window, err := e.resolver.Resolve(ctx, settings, now)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("light_mode", settings.LightMode).
			Str("light_duration", settings.LightDuration).
			Msg("Light schedule unavailable, light off")
		if e.observer != nil {
			e.observer.ScheduleDegraded(degradeReason(err))
		}
		return models.SwitchOff
	}

	clock := schedule.ClockOf(now)
	inWindow := window.Contains(clock)
	if e.wrapMidnight {
		inWindow = window.ContainsWrapped(clock)
	}

	e.logger.Debug().
		Str("light_start", window.Start.String()).
		Str("light_stop", window.Stop.String()).
		Str("now", clock.String()).
		Bool("in_window", inWindow).
		Msg("Evaluated light window")

	return models.SwitchOf(inWindow && reading.IsPresent())
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, schedule.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, schedule.ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, schedule.ErrInvalidLightTime):
		return "invalid_light_time"
	default:
		return "other"
	}
}
