// Package mqtt fans comfort decisions and settings out to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/schedule"
)

const (
	// TopicCommands carries one decision per accepted reading.
	TopicCommands = "commands"

	// TopicSettings carries the active settings, retained.
	TopicSettings = "settings"
)

// Publisher publishes decisions and settings to MQTT.
type Publisher interface {
	// PublishDecision sends the decision made for reading.
	PublishDecision(decision models.Decision, reading *models.Reading) error

	// PublishSettings sends newly accepted settings and their light window.
	PublishSettings(settings *models.Settings, window schedule.Window) error

	// Close disconnects from the broker.
	Close() error
}

// Topic joins a prefix and a topic name.
func Topic(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// CommandPayload is the message body on the commands topic.
type CommandPayload struct {
	Fan         models.Switch `json:"fan"`
	Light       models.Switch `json:"light"`
	Temperature float64       `json:"temperature"`
	Presence    int           `json:"presence"`
	Timestamp   string        `json:"timestamp"`
}

// SettingsPayload is the message body on the settings topic.
type SettingsPayload struct {
	ID                string             `json:"id"`
	TargetTemperature int                `json:"target_temperature"`
	LightMode         string             `json:"light_mode"`
	LightDuration     string             `json:"light_duration"`
	LightStart        schedule.TimeOfDay `json:"light_start"`
	LightStop         schedule.TimeOfDay `json:"light_stop"`
	SubmittedAt       string             `json:"submitted_at"`
}

// FormatCommand creates the JSON payload for a decision.
func FormatCommand(decision models.Decision, reading *models.Reading) ([]byte, error) {
	payload := CommandPayload{
		Fan:   decision.Fan,
		Light: decision.Light,
	}
	if reading != nil {
		payload.Temperature = reading.Temperature
		payload.Presence = reading.Presence
		payload.Timestamp = reading.Timestamp.Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// FormatSettings creates the JSON payload for accepted settings.
func FormatSettings(settings *models.Settings, window schedule.Window) ([]byte, error) {
	payload := SettingsPayload{
		ID:                settings.ID,
		TargetTemperature: settings.TargetTemperature,
		LightMode:         settings.LightMode,
		LightDuration:     settings.LightDuration,
		LightStart:        window.Start,
		LightStop:         window.Stop,
	}
	if !settings.SubmittedAt.IsZero() {
		payload.SubmittedAt = settings.SubmittedAt.Format(time.RFC3339)
	}
	return json.Marshal(payload)
}
