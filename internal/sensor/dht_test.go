package sensor

import (
	"strings"
	"testing"
)

// stubSensor is a TemperatureSensor that returns fixed values
type stubSensor struct {
	temperature float64
	err         error
	readCount   int
	closed      bool
}

func (s *stubSensor) ReadTemperature() (float64, error) {
	s.readCount++
	return s.temperature, s.err
}

func (s *stubSensor) Close() error {
	s.closed = true
	return nil
}

var (
	_ TemperatureSensor = (*DHT11Reader)(nil)
	_ TemperatureSensor = (*stubSensor)(nil)
)

func TestLimits_Check(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		humidity float64
		wantErr  string
	}{
		{"room", 22.5, 45.0, ""},
		{"lowest", -20.0, 0.0, ""},
		{"highest", 60.0, 100.0, ""},
		{"freezer", -25.0, 45.0, "temperature"},
		{"oven", 65.0, 45.0, "temperature"},
		{"negative humidity", 22.5, -5.0, "humidity"},
		{"saturated", 22.5, 105.0, "humidity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DHT11Limits.Check(tt.temp, tt.humidity)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Check(%v, %v) = %v, want nil", tt.temp, tt.humidity, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Check(%v, %v) = %v, want error mentioning %q", tt.temp, tt.humidity, err, tt.wantErr)
			}
		})
	}
}

func TestLimits_Custom(t *testing.T) {
	indoor := Limits{MinTemp: 10, MaxTemp: 40, MinHumidity: 20, MaxHumidity: 90}
	if err := indoor.Check(5, 50); err == nil {
		t.Error("5°C should be rejected by indoor limits")
	}
	if err := indoor.Check(25, 50); err != nil {
		t.Errorf("25°C rejected: %v", err)
	}
}

func TestDHT11Options(t *testing.T) {
	d := &DHT11Reader{retries: 3, limits: DHT11Limits}

	WithRetries(0)(d)
	if d.retries != 3 {
		t.Errorf("WithRetries(0) changed retries to %d", d.retries)
	}
	WithRetries(5)(d)
	if d.retries != 5 {
		t.Errorf("retries = %d, want 5", d.retries)
	}

	custom := Limits{MaxTemp: 30, MaxHumidity: 80}
	WithLimits(custom)(d)
	if d.limits != custom {
		t.Errorf("limits = %+v, want %+v", d.limits, custom)
	}
}
