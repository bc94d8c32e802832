package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LightModeSunset is the light mode that starts the light at local sunset
const LightModeSunset = "sunset"

// Settings is the comfort configuration submitted by the user.
// Only the most recently submitted Settings is authoritative.
type Settings struct {
	ID                string    `json:"id"`
	TargetTemperature int       `json:"target_temperature"`
	LightMode         string    `json:"light_mode"`
	LightDuration     string    `json:"light_duration"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// IsSunset reports whether the light schedule follows sunset
func (s *Settings) IsSunset() bool {
	return s.LightMode == LightModeSunset
}

// Copy returns a copy of the Settings
func (s *Settings) Copy() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SettingsMessage is the wire form of a settings submission
type SettingsMessage struct {
	ID                string `json:"id,omitempty"`
	TargetTemperature *int   `json:"target_temperature"`
	LightMode         string `json:"light_mode"`
	LightDuration     string `json:"light_duration"`
}

// ToSettings validates the message and converts it to Settings.
// An empty ID is left empty for the caller to assign.
func (m *SettingsMessage) ToSettings() (*Settings, error) {
	if m.TargetTemperature == nil {
		return nil, errors.New("target_temperature is required")
	}
	if m.LightMode == "" {
		return nil, errors.New("light_mode is required")
	}
	if m.ID != "" {
		if _, err := uuid.Parse(m.ID); err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", m.ID, err)
		}
	}
	return &Settings{
		ID:                m.ID,
		TargetTemperature: *m.TargetTemperature,
		LightMode:         m.LightMode,
		LightDuration:     m.LightDuration,
	}, nil
}
