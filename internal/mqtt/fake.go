package mqtt

import (
	"sync"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/schedule"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Decisions contains all decisions that were published.
	Decisions []models.Decision

	// CommandPayloads contains the JSON payloads for decisions.
	CommandPayloads [][]byte

	// SettingsPayloads contains the JSON payloads for settings.
	SettingsPayloads [][]byte

	// PublishError, if set, is returned by both publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishDecision records the decision.
func (f *FakePublisher) PublishDecision(decision models.Decision, reading *models.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatCommand(decision, reading)
	if err != nil {
		return err
	}
	f.Decisions = append(f.Decisions, decision)
	f.CommandPayloads = append(f.CommandPayloads, payload)
	return nil
}

// PublishSettings records the settings payload.
func (f *FakePublisher) PublishSettings(settings *models.Settings, window schedule.Window) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatSettings(settings, window)
	if err != nil {
		return err
	}
	f.SettingsPayloads = append(f.SettingsPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// DecisionCount returns the number of recorded decisions.
func (f *FakePublisher) DecisionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Decisions)
}
