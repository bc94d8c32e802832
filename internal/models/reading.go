package models

import (
	"fmt"
	"math"
	"time"
)

// DateTimeLayout is the zone-less layout used when readings are rendered for the graph
const DateTimeLayout = "2006-01-02T15:04:05"

// Reading represents one sample from the sensor hub.
// Presence is a count or flag: 0 means nobody is there, anything else means present.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Presence    int       `json:"presence"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsPresent reports whether the reading saw someone
func (r *Reading) IsPresent() bool {
	return r.Presence != 0
}

// IsValid checks that the reading can be recorded
func (r *Reading) IsValid() bool {
	if r.Timestamp.IsZero() {
		return false
	}
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return false
	}
	return true
}

// get the reading as a string
func (r *Reading) String() string {
	return fmt.Sprintf("Timestamp: %s, Temperature: %.1f°C, Presence: %d",
		r.Timestamp.Format(time.RFC3339),
		r.Temperature,
		r.Presence)
}

// NewReading creates a new Reading with the current timestamp
func NewReading(temperature float64, presence int) *Reading {
	return &Reading{
		Temperature: temperature,
		Presence:    presence,
		Timestamp:   time.Now(),
	}
}

// Copy returns a deep copy of the Reading
func (r *Reading) Copy() *Reading {
	if r == nil {
		return nil
	}
	return &Reading{
		Temperature: r.Temperature,
		Presence:    r.Presence,
		Timestamp:   r.Timestamp,
	}
}

// GraphPoint is the query representation of a reading
type GraphPoint struct {
	Temperature float64 `json:"temperature"`
	Presence    int     `json:"presence"`
	DateTime    string  `json:"datetime"`
}

// ToGraphPoint renders the reading with its wall-clock time in loc
func (r *Reading) ToGraphPoint(loc *time.Location) GraphPoint {
	ts := r.Timestamp
	if loc != nil {
		ts = ts.In(loc)
	}
	return GraphPoint{
		Temperature: r.Temperature,
		Presence:    r.Presence,
		DateTime:    ts.Format(DateTimeLayout),
	}
}

// ReadingMessage is the wire form of a submitted reading.
// Temperature and Presence are required; Timestamp is optional.
type ReadingMessage struct {
	Temperature *float64 `json:"temperature"`
	Presence    *int     `json:"presence"`
	Timestamp   string   `json:"timestamp,omitempty"`

	// DateTime is the field name older hub firmware sends the timestamp under
	DateTime string `json:"date_time,omitempty"`
}

// NewReadingMessage builds the wire form of r
func NewReadingMessage(r *Reading) ReadingMessage {
	temp := r.Temperature
	presence := r.Presence
	msg := ReadingMessage{Temperature: &temp, Presence: &presence}
	if !r.Timestamp.IsZero() {
		msg.Timestamp = r.Timestamp.Format(time.RFC3339Nano)
	}
	return msg
}

// ToReading validates the message and converts it to a Reading.
// Timestamps without a zone are read as wall-clock time in loc.
// A missing timestamp is left zero for the caller to fill in.
func (m *ReadingMessage) ToReading(loc *time.Location) (*Reading, error) {
	if m.Temperature == nil {
		return nil, fmt.Errorf("temperature is required")
	}
	if m.Presence == nil {
		return nil, fmt.Errorf("presence is required")
	}
	if math.IsNaN(*m.Temperature) || math.IsInf(*m.Temperature, 0) {
		return nil, fmt.Errorf("temperature must be a finite number")
	}
	reading := &Reading{
		Temperature: *m.Temperature,
		Presence:    *m.Presence,
	}
	raw := m.Timestamp
	if raw == "" {
		raw = m.DateTime
	}
	if raw != "" {
		ts, err := ParseTimestamp(raw, loc)
		if err != nil {
			return nil, err
		}
		reading.Timestamp = ts
	}
	return reading, nil
}

// ParseTimestamp tries the accepted timestamp formats in turn.
// Zoned timestamps are converted to loc, zone-less ones are interpreted in loc.
func ParseTimestamp(ts string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	zoned := []string{
		time.RFC3339Nano,
		time.RFC3339,
	}
	for _, format := range zoned {
		if t, err := time.Parse(format, ts); err == nil {
			return t.In(loc), nil
		}
	}

	naive := []string{
		"2006-01-02T15:04:05.999999999",
		DateTimeLayout,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
	}
	for _, format := range naive {
		if t, err := time.ParseInLocation(format, ts, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", ts)
}
