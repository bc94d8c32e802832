// internal/control/fakes_test.go
package control

import (
	"context"
	"sync"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/schedule"
)

type fakeSunset struct {
	mu    sync.Mutex
	at    schedule.TimeOfDay
	err   error
	calls int
}

func (f *fakeSunset) Sunset(_ context.Context, _, _ float64, _ time.Time) (schedule.TimeOfDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.at, f.err
}

type fakeStore struct {
	mu       sync.Mutex
	readings []*models.Reading
	settings *models.Settings
}

func (s *fakeStore) Append(r *models.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r.Copy())
}

func (s *fakeStore) First(n int) []*models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.readings) {
		n = len(s.readings)
	}
	out := make([]*models.Reading, n)
	for i := 0; i < n; i++ {
		out[i] = s.readings[i].Copy()
	}
	return out
}

func (s *fakeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func (s *fakeStore) SetSettings(settings *models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings.Copy()
}

func (s *fakeStore) Settings() *models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Copy()
}

type fakeObserver struct {
	mu        sync.Mutex
	decisions []models.Decision
	degraded  []string
}

func (o *fakeObserver) DecisionMade(d models.Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, d)
}

func (o *fakeObserver) ScheduleDegraded(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded = append(o.degraded, reason)
}

type fakeArchive struct {
	mu      sync.Mutex
	records []*models.ArchiveRecord
}

func (a *fakeArchive) Write(r *models.ArchiveRecord) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
	return true
}

type fakePublisher struct {
	mu        sync.Mutex
	decisions []models.Decision
	windows   []schedule.Window
}

func (p *fakePublisher) PublishDecision(d models.Decision, _ *models.Reading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decisions = append(p.decisions, d)
	return nil
}

func (p *fakePublisher) PublishSettings(_ *models.Settings, w schedule.Window) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windows = append(p.windows, w)
	return nil
}

// at returns a clock fixed at hh:mm:ss UTC on a summer day
func at(hour, minute, second int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, second, 0, time.UTC)
}
