package gpio

import (
	"errors"
	"sync"
)

// FakePresence is a test double that returns scripted PIR values.
type FakePresence struct {
	mu sync.Mutex

	// Samples contains scripted values to return.
	// Each call to Present() consumes the next sample.
	Samples []bool

	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Present()
	ReadError error
}

// NewFakePresence creates a FakePresence with the given samples.
func NewFakePresence(samples ...bool) *FakePresence {
	return &FakePresence{Samples: samples}
}

// Present returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakePresence) Present() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the reader as closed.
func (f *FakePresence) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// FakeRelay records every state it is driven to.
type FakeRelay struct {
	mu sync.Mutex

	// History contains every state passed to Set.
	History []bool

	// SetError, if set, will be returned by Set()
	SetError error

	// Closed tracks if Close was called
	Closed bool

	on bool
}

// NewFakeRelay creates a FakeRelay that starts off.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Set records the state.
func (f *FakeRelay) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.History = append(f.History, on)
	f.on = on
	return nil
}

// State returns the last state set.
func (f *FakeRelay) State() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Close switches the relay off.
func (f *FakeRelay) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.Closed = true
	return nil
}
