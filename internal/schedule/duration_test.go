package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"1h30m", 90 * time.Minute},
		{"45s", 45 * time.Second},
		{"2h", 2 * time.Hour},
		{"10m", 10 * time.Minute},
		{"1h2m3s", time.Hour + 2*time.Minute + 3*time.Second},
		{"1h5s", time.Hour + 5*time.Second},
		{"90m", 90 * time.Minute},
		{"25h", 25 * time.Hour},
		{"0h0m0s", 0},
		// no leading component parses to zero
		{"", 0},
		{"soon", 0},
		{"45", 0},
		// text after the matched prefix is ignored
		{"1h30mextra", 90 * time.Minute},
		{"30m1h", 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if err != nil {
				t.Fatalf("ParseDuration(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDuration_Idempotent(t *testing.T) {
	for i := 0; i < 3; i++ {
		got, err := ParseDuration("1h30m")
		if err != nil || got != 90*time.Minute {
			t.Fatalf("ParseDuration(\"1h30m\") = %v, %v", got, err)
		}
	}
}

func TestParseDuration_OutOfRange(t *testing.T) {
	inputs := []string{
		"99999999999999999999h",
		"9223372036h",
		"2562047h999999m",
	}
	for _, input := range inputs {
		_, err := ParseDuration(input)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("ParseDuration(%q) error = %v, want ErrInvalidDuration", input, err)
		}
	}
}
