// internal/models/reading_test.go
package models

import (
	"math"
	"testing"
	"time"
)

func TestReading_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		reading  Reading
		expected bool
	}{
		{
			name:     "valid reading",
			reading:  Reading{Temperature: 22.5, Presence: 1, Timestamp: time.Now()},
			expected: true,
		},
		{
			name:     "negative temperature is fine",
			reading:  Reading{Temperature: -5, Presence: 0, Timestamp: time.Now()},
			expected: true,
		},
		{
			name:     "zero timestamp",
			reading:  Reading{Temperature: 22.5, Presence: 1},
			expected: false,
		},
		{
			name:     "NaN temperature",
			reading:  Reading{Temperature: math.NaN(), Presence: 1, Timestamp: time.Now()},
			expected: false,
		},
		{
			name:     "infinite temperature",
			reading:  Reading{Temperature: math.Inf(1), Presence: 1, Timestamp: time.Now()},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.reading.IsValid()
			if result != tt.expected {
				t.Errorf("IsValid() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestReading_IsPresent(t *testing.T) {
	tests := []struct {
		presence int
		want     bool
	}{
		{0, false},
		{1, true},
		{3, true},
		{-1, true},
	}
	for _, tt := range tests {
		r := Reading{Presence: tt.presence}
		if got := r.IsPresent(); got != tt.want {
			t.Errorf("IsPresent() with presence %d = %v, want %v", tt.presence, got, tt.want)
		}
	}
}

func TestNewReading(t *testing.T) {
	reading := NewReading(22.5, 1)

	if reading == nil {
		t.Fatal("NewReading returned nil")
	}
	if reading.Temperature != 22.5 {
		t.Errorf("Temperature = %v, want 22.5", reading.Temperature)
	}
	if reading.Presence != 1 {
		t.Errorf("Presence = %v, want 1", reading.Presence)
	}
	if reading.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestReading_Copy(t *testing.T) {
	original := NewReading(21.0, 2)
	c := original.Copy()
	if c == original {
		t.Fatal("Copy returned the same pointer")
	}
	c.Temperature = 99
	if original.Temperature != 21.0 {
		t.Error("mutating the copy changed the original")
	}

	var nilReading *Reading
	if nilReading.Copy() != nil {
		t.Error("Copy of nil should be nil")
	}
}

func TestReading_ToGraphPoint(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	r := Reading{
		Temperature: 24.25,
		Presence:    1,
		Timestamp:   time.Date(2024, 3, 10, 17, 30, 15, 500, time.UTC),
	}

	p := r.ToGraphPoint(loc)
	if p.DateTime != "2024-03-10T12:30:15" {
		t.Errorf("DateTime = %q, want 2024-03-10T12:30:15", p.DateTime)
	}
	if p.Temperature != 24.25 || p.Presence != 1 {
		t.Errorf("unexpected point %+v", p)
	}
}

func TestReadingMessage_ToReading(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	temp := 27.5
	presence := 1

	t.Run("missing temperature", func(t *testing.T) {
		m := ReadingMessage{Presence: &presence}
		if _, err := m.ToReading(loc); err == nil {
			t.Error("expected error for missing temperature")
		}
	})

	t.Run("missing presence", func(t *testing.T) {
		m := ReadingMessage{Temperature: &temp}
		if _, err := m.ToReading(loc); err == nil {
			t.Error("expected error for missing presence")
		}
	})

	t.Run("no timestamp", func(t *testing.T) {
		m := ReadingMessage{Temperature: &temp, Presence: &presence}
		r, err := m.ToReading(loc)
		if err != nil {
			t.Fatalf("ToReading failed: %v", err)
		}
		if !r.Timestamp.IsZero() {
			t.Errorf("Timestamp = %v, want zero", r.Timestamp)
		}
	})

	t.Run("naive timestamp", func(t *testing.T) {
		m := ReadingMessage{Temperature: &temp, Presence: &presence, Timestamp: "2024-03-10T08:00:00"}
		r, err := m.ToReading(loc)
		if err != nil {
			t.Fatalf("ToReading failed: %v", err)
		}
		want := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)
		if !r.Timestamp.Equal(want) {
			t.Errorf("Timestamp = %v, want %v", r.Timestamp, want)
		}
	})

	t.Run("date_time field", func(t *testing.T) {
		m := ReadingMessage{Temperature: &temp, Presence: &presence, DateTime: "2024-03-10 21:15:00"}
		r, err := m.ToReading(loc)
		if err != nil {
			t.Fatalf("ToReading failed: %v", err)
		}
		want := time.Date(2024, 3, 10, 21, 15, 0, 0, loc)
		if !r.Timestamp.Equal(want) {
			t.Errorf("Timestamp = %v, want %v", r.Timestamp, want)
		}
	})

	t.Run("bad timestamp", func(t *testing.T) {
		m := ReadingMessage{Temperature: &temp, Presence: &presence, Timestamp: "yesterday"}
		if _, err := m.ToReading(loc); err == nil {
			t.Error("expected error for bad timestamp")
		}
	})
}

func TestNewReadingMessage(t *testing.T) {
	r := &Reading{Temperature: 19.5, Presence: 0, Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewReadingMessage(r)

	back, err := m.ToReading(time.UTC)
	if err != nil {
		t.Fatalf("ToReading failed: %v", err)
	}
	if back.Temperature != r.Temperature || back.Presence != r.Presence || !back.Timestamp.Equal(r.Timestamp) {
		t.Errorf("got %+v, want %+v", back, r)
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("JMT", -5*3600)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339 utc", "2024-06-01T20:00:00Z", time.Date(2024, 6, 1, 15, 0, 0, 0, loc)},
		{"rfc3339 offset", "2024-06-01T20:00:00+02:00", time.Date(2024, 6, 1, 13, 0, 0, 0, loc)},
		{"naive T", "2024-06-01T20:00:00", time.Date(2024, 6, 1, 20, 0, 0, 0, loc)},
		{"naive fraction", "2024-06-01T20:00:00.250", time.Date(2024, 6, 1, 20, 0, 0, 250000000, loc)},
		{"naive space", "2024-06-01 20:00:00", time.Date(2024, 6, 1, 20, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input, loc)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) failed: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != loc {
				t.Errorf("location = %v, want %v", got.Location(), loc)
			}
		})
	}

	if _, err := ParseTimestamp("not a time", loc); err == nil {
		t.Error("expected error for garbage input")
	}
}
