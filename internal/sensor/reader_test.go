// internal/sensor/reader_test.go
package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/afroash/comfort-hub/internal/gpio"
	"github.com/afroash/comfort-hub/internal/models"
	"github.com/rs/zerolog"
)

func TestReader_ReadOnce(t *testing.T) {
	stub := &stubSensor{temperature: 27.5}
	pir := gpio.NewFakePresence(true, false)
	reader := NewReader(stub, pir, 30*time.Second, zerolog.Nop())

	fixed := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	reader.now = func() time.Time { return fixed }

	reading, err := reader.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce() failed: %v", err)
	}
	if reading.Temperature != 27.5 {
		t.Errorf("Temperature = %v, want 27.5", reading.Temperature)
	}
	if reading.Presence != 1 {
		t.Errorf("Presence = %v, want 1", reading.Presence)
	}
	if !reading.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", reading.Timestamp, fixed)
	}

	reading, err = reader.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce() failed: %v", err)
	}
	if reading.Presence != 0 {
		t.Errorf("Presence = %v, want 0", reading.Presence)
	}
}

func TestReader_ReadOnce_Errors(t *testing.T) {
	t.Run("temperature", func(t *testing.T) {
		stub := &stubSensor{err: errors.New("checksum mismatch")}
		reader := NewReader(stub, gpio.NewFakePresence(true), time.Second, zerolog.Nop())
		if _, err := reader.ReadOnce(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("presence", func(t *testing.T) {
		pir := gpio.NewFakePresence(true)
		pir.ReadError = errors.New("line busy")
		reader := NewReader(&stubSensor{temperature: 20}, pir, time.Second, zerolog.Nop())
		if _, err := reader.ReadOnce(); err == nil {
			t.Error("expected error")
		}
	})
}

func TestReader_Start(t *testing.T) {
	stub := &stubSensor{temperature: 22.5}
	reader := NewReader(stub, gpio.NewFakePresence(true), 100*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go reader.Start(ctx)

	readings := []*models.Reading{}
	timeout := time.After(600 * time.Millisecond)

readLoop:
	for {
		select {
		case reading, ok := <-reader.Readings():
			if !ok {
				break readLoop
			}
			readings = append(readings, reading)
		case <-timeout:
			break readLoop
		}
	}

	if len(readings) < 3 {
		t.Errorf("Got %d readings, expected at least 3", len(readings))
	}
}

func TestReader_Close(t *testing.T) {
	stub := &stubSensor{}
	pir := gpio.NewFakePresence(false)
	reader := NewReader(stub, pir, time.Second, zerolog.Nop())

	if err := reader.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !stub.closed || !pir.Closed {
		t.Error("both sensors should be closed")
	}
}
