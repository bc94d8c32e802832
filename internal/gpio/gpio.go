// Package gpio drives the hub's presence sensor and relays.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/afroash/comfort-hub/internal/models"
)

// PresenceReader reads the motion sensor.
type PresenceReader interface {
	// Present reports whether motion is currently detected.
	Present() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Relay switches one actuator.
type Relay interface {
	// Set drives the relay to the logical state on.
	Set(on bool) error

	// State returns the last state successfully set.
	State() bool

	// Close switches the relay off and releases GPIO resources.
	Close() error
}

// NopRelay stands in for an actuator that is not wired.
type NopRelay struct {
	on bool
}

// Set records the state.
func (r *NopRelay) Set(on bool) error {
	r.on = on
	return nil
}

// State returns the recorded state.
func (r *NopRelay) State() bool { return r.on }

// Close does nothing.
func (r *NopRelay) Close() error { return nil }

// Actuators groups the fan and light relays.
type Actuators struct {
	Fan   Relay
	Light Relay
}

// Apply drives both relays to match decision.
func (a *Actuators) Apply(decision models.Decision) error {
	var errs []error
	if err := a.Fan.Set(decision.Fan.IsOn()); err != nil {
		errs = append(errs, fmt.Errorf("fan: %w", err))
	}
	if err := a.Light.Set(decision.Light.IsOn()); err != nil {
		errs = append(errs, fmt.Errorf("light: %w", err))
	}
	return errors.Join(errs...)
}

// State returns the decision the relays currently reflect.
func (a *Actuators) State() models.Decision {
	return models.Decision{
		Fan:   models.SwitchOf(a.Fan.State()),
		Light: models.SwitchOf(a.Light.State()),
	}
}

// Close switches everything off and releases the relays.
func (a *Actuators) Close() error {
	return errors.Join(a.Fan.Close(), a.Light.Close())
}
