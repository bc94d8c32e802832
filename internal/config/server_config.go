package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/afroash/comfort-hub/internal/schedule"
	"gopkg.in/yaml.v3"
)

// AppConfig holds the comfort server configuration
type AppConfig struct {
	Server   ServerSettings   `yaml:"server"`
	Schedule ScheduleSettings `yaml:"schedule"`
	Archive  ArchiveSettings  `yaml:"archive"`
	MQTT     MQTTSettings     `yaml:"mqtt"`
	Metrics  MetricsSettings  `yaml:"metrics"`
	Logging  LoggingConfig    `yaml:"logging"`
}

// ServerSettings contains HTTP server configuration
type ServerSettings struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`

	// Timezone is an IANA zone name. Empty means the host's local zone.
	Timezone string `yaml:"timezone"`
}

// ScheduleSettings configures light schedule resolution
type ScheduleSettings struct {
	Latitude      float64       `yaml:"latitude"`
	Longitude     float64       `yaml:"longitude"`
	SunsetURL     string        `yaml:"sunset_url"`
	SunsetTimeout time.Duration `yaml:"sunset_timeout"` // 0 = no timeout
	WrapMidnight  bool          `yaml:"wrap_midnight"`
}

// ArchiveSettings configures the optional SQLite archive
type ArchiveSettings struct {
	Enabled       bool          `yaml:"enabled"`
	DBPath        string        `yaml:"db_path"`
	BatchSize     int           `yaml:"batch_size"`
	FlushPeriod   time.Duration `yaml:"flush_period"`
	ChannelSize   int           `yaml:"channel_size"`
	RetentionDays int           `yaml:"retention_days"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
}

// MQTTSettings configures the optional command fan-out
type MQTTSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// MetricsSettings configures the prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadAppConfig loads server configuration from a YAML file
func LoadAppConfig(path string) (*AppConfig, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var config AppConfig
	if err := yaml.Unmarshal(yamlData, &config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	config.ApplyDefaults()
	if err := config.OverrideFromEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for server config
func (ac *AppConfig) ApplyDefaults() {
	if ac.Server.Port == 0 {
		ac.Server.Port = 8000
	}
	if ac.Server.Host == "" {
		ac.Server.Host = "0.0.0.0"
	}
	if ac.Server.ReadTimeout == 0 {
		ac.Server.ReadTimeout = 60 * time.Second
	}
	if ac.Server.WriteTimeout == 0 {
		ac.Server.WriteTimeout = 30 * time.Second
	}
	if len(ac.Server.AllowedOrigins) == 0 {
		ac.Server.AllowedOrigins = []string{"*"}
	}
	if ac.Schedule.Latitude == 0 && ac.Schedule.Longitude == 0 {
		ac.Schedule.Latitude = schedule.DefaultLatitude
		ac.Schedule.Longitude = schedule.DefaultLongitude
	}
	if ac.Schedule.SunsetURL == "" {
		ac.Schedule.SunsetURL = schedule.DefaultSunsetURL
	}
	if ac.Archive.DBPath == "" {
		ac.Archive.DBPath = "./data/comfort-hub.db"
	}
	if ac.Archive.BatchSize == 0 {
		ac.Archive.BatchSize = 100
	}
	if ac.Archive.FlushPeriod == 0 {
		ac.Archive.FlushPeriod = 5 * time.Second
	}
	if ac.Archive.ChannelSize == 0 {
		ac.Archive.ChannelSize = 1000
	}
	if ac.Archive.RetentionDays == 0 {
		ac.Archive.RetentionDays = 30
	}
	if ac.Archive.CleanupPeriod == 0 {
		ac.Archive.CleanupPeriod = time.Hour
	}
	if ac.MQTT.ClientID == "" {
		ac.MQTT.ClientID = "comfort-hub-server"
	}
	if ac.MQTT.TopicPrefix == "" {
		ac.MQTT.TopicPrefix = "comfort/hub"
	}
	if ac.Metrics.Path == "" {
		ac.Metrics.Path = "/metrics"
	}
	ac.Logging.applyDefaults()
}

// OverrideFromEnv overrides config from environment variables
func (ac *AppConfig) OverrideFromEnv() error {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		ac.Server.Port = port
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		ac.Server.Host = v
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		ac.Server.Timezone = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		ac.MQTT.Broker = v
		ac.MQTT.Enabled = true
	}
	if v := os.Getenv("ARCHIVE_DB_PATH"); v != "" {
		ac.Archive.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		ac.Logging.Level = v
	}
	return nil
}

// Validate checks if server configuration is valid
func (ac *AppConfig) Validate() error {
	if ac.Server.Port < 1 || ac.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if _, err := ac.Location(); err != nil {
		return err
	}
	if ac.Schedule.Latitude < -90 || ac.Schedule.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if ac.Schedule.Longitude < -180 || ac.Schedule.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	if ac.Schedule.SunsetTimeout < 0 {
		return fmt.Errorf("sunset timeout must not be negative")
	}
	if ac.Archive.Enabled {
		if ac.Archive.BatchSize < 1 || ac.Archive.ChannelSize < ac.Archive.BatchSize {
			return fmt.Errorf("archive channel size must be at least the batch size")
		}
		if ac.Archive.RetentionDays < 1 {
			return fmt.Errorf("archive retention must be at least 1 day")
		}
	}
	if ac.MQTT.Enabled {
		if ac.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker is required when mqtt is enabled")
		}
		if ac.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt qos must be 0, 1 or 2")
		}
	}
	return ac.Logging.validate()
}

// Location resolves the configured timezone
func (ac *AppConfig) Location() (*time.Location, error) {
	if ac.Server.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(ac.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", ac.Server.Timezone, err)
	}
	return loc, nil
}

// Addr returns the listen address
func (ac *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ac.Server.Host, ac.Server.Port)
}

// String returns a one-line summary of the configuration
func (ac *AppConfig) String() string {
	return fmt.Sprintf("AppConfig{Server: %+v, Schedule: %+v, Archive: %+v, MQTT: [enabled=%t broker=%s], Logging: %+v}",
		ac.Server,
		ac.Schedule,
		ac.Archive,
		ac.MQTT.Enabled,
		ac.MQTT.Broker,
		ac.Logging,
	)
}
