package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HubConfig holds all configuration for the sensor hub
type HubConfig struct {
	Hub     HubSettings      `yaml:"hub"`
	GPIO    GPIOSettings     `yaml:"gpio"`
	Server  ConnectionConfig `yaml:"server"`
	Buffer  BufferConfig     `yaml:"buffer"`
	Logging LoggingConfig    `yaml:"logging"`
}

// HubSettings identifies the hub and sets the sampling rate
type HubSettings struct {
	ID           string        `yaml:"id"`
	Location     string        `yaml:"location"`
	ReadInterval time.Duration `yaml:"read_interval"`
}

// GPIOSettings holds BCM pin numbers. A relay pin of 0 disables that relay.
type GPIOSettings struct {
	Chip        string `yaml:"chip"`
	DHTPin      int    `yaml:"dht_pin"`
	PIRPin      int    `yaml:"pir_pin"`
	FanPin      int    `yaml:"fan_pin"`
	LightPin    int    `yaml:"light_pin"`
	ActiveLow   bool   `yaml:"active_low"`
	SensorType  string `yaml:"sensor_type"`
	ReadRetries int    `yaml:"read_retries"`
}

// ConnectionConfig contains connection settings for the comfort server
type ConnectionConfig struct {
	URL                  string        `yaml:"url"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PongTimeout          time.Duration `yaml:"pong_timeout"`
}

// BufferConfig contains settings for the offline reading buffer
type BufferConfig struct {
	Size       int  `yaml:"size"`
	DropOldest bool `yaml:"drop_oldest"`
	BatchSize  int  `yaml:"batch_size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`     // debug, info, warn, error
	Format   string `yaml:"format"`    // json or console
	FilePath string `yaml:"file_path"` // empty = stdout only
}

// LoadHubConfig loads hub configuration from a YAML file
func LoadHubConfig(path string) (*HubConfig, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var config HubConfig
	if err := yaml.Unmarshal(yamlData, &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	config.ApplyDefaults()
	config.OverrideFromEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for any unset fields
func (c *HubConfig) ApplyDefaults() {
	if c.Hub.ReadInterval == 0 {
		c.Hub.ReadInterval = 10 * time.Second
	}
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = "gpiochip0"
	}
	if c.GPIO.SensorType == "" {
		c.GPIO.SensorType = "DHT11"
	}
	if c.GPIO.ReadRetries == 0 {
		c.GPIO.ReadRetries = 3
	}
	if c.Server.ConnectTimeout == 0 {
		c.Server.ConnectTimeout = 10 * time.Second
	}
	if c.Server.ReconnectInterval == 0 {
		c.Server.ReconnectInterval = time.Second
	}
	if c.Server.MaxReconnectInterval == 0 {
		c.Server.MaxReconnectInterval = 5 * time.Minute
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = 30 * time.Second
	}
	if c.Server.PongTimeout == 0 {
		c.Server.PongTimeout = 90 * time.Second
	}
	if c.Buffer.Size == 0 {
		c.Buffer.Size = 1000
		c.Buffer.DropOldest = true
	}
	if c.Buffer.BatchSize == 0 {
		c.Buffer.BatchSize = 100
	}
	c.Logging.applyDefaults()
}

func (l *LoggingConfig) applyDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
}

// OverrideFromEnv overrides config values from environment variables
func (c *HubConfig) OverrideFromEnv() {
	if v := os.Getenv("HUB_ID"); v != "" {
		c.Hub.ID = v
	}
	if v := os.Getenv("HUB_LOCATION"); v != "" {
		c.Hub.Location = v
	}
	if v := os.Getenv("SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *HubConfig) Validate() error {
	if c.Hub.ID == "" {
		return fmt.Errorf("hub ID is required")
	}
	if c.Hub.ReadInterval < time.Second {
		return fmt.Errorf("read interval must be at least 1 second")
	}
	if c.GPIO.DHTPin <= 0 {
		return fmt.Errorf("DHT pin must be greater than 0")
	}
	if c.GPIO.PIRPin <= 0 {
		return fmt.Errorf("PIR pin must be greater than 0")
	}
	if c.GPIO.FanPin < 0 || c.GPIO.LightPin < 0 {
		return fmt.Errorf("relay pins must not be negative")
	}
	if c.GPIO.SensorType != "DHT11" {
		return fmt.Errorf("unsupported sensor type %q", c.GPIO.SensorType)
	}
	if c.GPIO.ReadRetries < 1 || c.GPIO.ReadRetries > 10 {
		return fmt.Errorf("read retries must be between 1 and 10")
	}
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if !strings.HasPrefix(c.Server.URL, "ws://") && !strings.HasPrefix(c.Server.URL, "wss://") {
		return fmt.Errorf("server URL must start with ws:// or wss://")
	}
	if c.Server.ReconnectInterval > c.Server.MaxReconnectInterval {
		return fmt.Errorf("reconnect interval must not exceed max reconnect interval")
	}
	if c.Buffer.Size < 10 || c.Buffer.Size > 100000 {
		return fmt.Errorf("buffer size must be between 10 and 100000")
	}
	if c.Buffer.BatchSize < 1 {
		return fmt.Errorf("buffer batch size must be positive")
	}
	return c.Logging.validate()
}

func (l *LoggingConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", l.Level)
	}
	if l.Format != "json" && l.Format != "console" {
		return fmt.Errorf("log format must be json or console, got %q", l.Format)
	}
	return nil
}

// String returns a one-line summary of the configuration
func (c *HubConfig) String() string {
	return fmt.Sprintf("HubConfig{Hub: %+v, GPIO: %+v, Server: [URL=%s], Buffer: %+v, Logging: %+v}",
		c.Hub,
		c.GPIO,
		c.Server.URL,
		c.Buffer,
		c.Logging,
	)
}
