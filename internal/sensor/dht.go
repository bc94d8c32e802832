package sensor

import (
	"fmt"

	"github.com/afroash/dht"
)

// TemperatureSensor reads room temperature in °C
type TemperatureSensor interface {
	ReadTemperature() (float64, error)
	Close() error
}

// Limits bounds the values a sensor can plausibly report. Anything outside
// is treated as a corrupt read.
type Limits struct {
	MinTemp, MaxTemp         float64
	MinHumidity, MaxHumidity float64
}

// DHT11Limits covers the DHT11 operating range with some headroom
var DHT11Limits = Limits{MinTemp: -20, MaxTemp: 60, MinHumidity: 0, MaxHumidity: 100}

// Check returns an error when temp or humidity falls outside l
func (l Limits) Check(temp, humidity float64) error {
	if temp < l.MinTemp || temp > l.MaxTemp {
		return fmt.Errorf("temperature %.1f°C outside %.0f..%.0f°C", temp, l.MinTemp, l.MaxTemp)
	}
	if humidity < l.MinHumidity || humidity > l.MaxHumidity {
		return fmt.Errorf("humidity %.1f%% outside %.0f..%.0f%%", humidity, l.MinHumidity, l.MaxHumidity)
	}
	return nil
}

// DHT11Option customises a DHT11Reader
type DHT11Option func(*DHT11Reader)

// WithRetries sets how many times a failed checksum read is retried
func WithRetries(n int) DHT11Option {
	return func(d *DHT11Reader) {
		if n > 0 {
			d.retries = n
		}
	}
}

// WithLimits replaces the plausibility bounds
func WithLimits(l Limits) DHT11Option {
	return func(d *DHT11Reader) { d.limits = l }
}

// DHT11Reader is a TemperatureSensor backed by a DHT11 on a BCM pin
type DHT11Reader struct {
	dev     *dht.Sensor
	pin     int
	retries int
	limits  Limits
}

func NewDHT11Reader(pin int, opts ...DHT11Option) (*DHT11Reader, error) {
	dev, err := dht.NewDHT11(pin)
	if err != nil {
		return nil, fmt.Errorf("open DHT11 on pin %d: %w", pin, err)
	}
	d := &DHT11Reader{dev: dev, pin: pin, retries: 3, limits: DHT11Limits}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ReadTemperature reads the device, retrying bad frames, and rejects
// implausible values.
func (d *DHT11Reader) ReadTemperature() (float64, error) {
	r, err := d.dev.ReadRetry(d.retries)
	if err != nil {
		return 0, fmt.Errorf("DHT11 pin %d: no valid frame in %d attempts: %w", d.pin, d.retries, err)
	}
	if err := d.limits.Check(r.Temperature, r.Humidity); err != nil {
		return 0, fmt.Errorf("DHT11 pin %d: %w", d.pin, err)
	}
	return r.Temperature, nil
}

func (d *DHT11Reader) Close() error {
	return d.dev.Close()
}
