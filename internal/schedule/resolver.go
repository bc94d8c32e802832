package schedule

import (
	"context"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
)

// Window is the resolved light schedule for a day
type Window struct {
	Start TimeOfDay `json:"light_start"`
	Stop  TimeOfDay `json:"light_stop"`
}

// Wraps reports whether the window crosses midnight
func (w Window) Wraps() bool {
	return w.Stop < w.Start
}

// Contains reports whether t lies in [Start, Stop].
// The comparison is literal, so a window that crosses midnight never matches.
func (w Window) Contains(t TimeOfDay) bool {
	return w.Start <= t && t <= w.Stop
}

// ContainsWrapped is Contains, except a window crossing midnight
// covers the late evening and early morning on either side of it.
func (w Window) ContainsWrapped(t TimeOfDay) bool {
	if !w.Wraps() {
		return w.Contains(t)
	}
	return t >= w.Start || t <= w.Stop
}

// Resolver turns Settings into a concrete Window
type Resolver struct {
	sunset    SunsetResolver
	latitude  float64
	longitude float64
}

// NewResolver creates a resolver that looks sunset up at the given coordinates
func NewResolver(sunset SunsetResolver, latitude, longitude float64) *Resolver {
	return &Resolver{
		sunset:    sunset,
		latitude:  latitude,
		longitude: longitude,
	}
}

// Resolve computes the light window for settings on the day of now.
// Sunset mode performs one upstream lookup per call.
func (r *Resolver) Resolve(ctx context.Context, settings *models.Settings, now time.Time) (Window, error) {
	if settings.IsSunset() {
		// duration is checked before the upstream call
		duration, err := ParseDuration(settings.LightDuration)
		if err != nil {
			return Window{}, err
		}
		start, err := r.sunset.Sunset(ctx, r.latitude, r.longitude, now)
		if err != nil {
			return Window{}, err
		}
		return Window{Start: start, Stop: start.Add(duration)}, nil
	}

	start, err := ParseTimeOfDay(settings.LightMode)
	if err != nil {
		return Window{}, err
	}
	duration, err := ParseDuration(settings.LightDuration)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, Stop: start.Add(duration)}, nil
}
