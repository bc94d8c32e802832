package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/schedule"
)

const publishTimeout = 5 * time.Second

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client   paho.Client
	commands string
	settings string
	qos      byte
	logger   zerolog.Logger
}

// NewRealPublisher creates a publisher connected to the configured broker.
func NewRealPublisher(opts Options, logger zerolog.Logger) (*RealPublisher, error) {
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(30 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	clientOpts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warn().Err(err).Str("broker", opts.Broker).Msg("MQTT connection lost")
	}
	clientOpts.OnConnect = func(_ paho.Client) {
		logger.Info().Str("broker", opts.Broker).Msg("MQTT connected")
	}

	client := paho.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client:   client,
		commands: Topic(opts.TopicPrefix, TopicCommands),
		settings: Topic(opts.TopicPrefix, TopicSettings),
		qos:      opts.QoS,
		logger:   logger,
	}, nil
}

// PublishDecision sends a decision to the commands topic.
func (p *RealPublisher) PublishDecision(decision models.Decision, reading *models.Reading) error {
	payload, err := FormatCommand(decision, reading)
	if err != nil {
		return fmt.Errorf("format command: %w", err)
	}
	return p.publish(p.commands, false, payload)
}

// PublishSettings sends settings to the settings topic as a retained message.
func (p *RealPublisher) PublishSettings(settings *models.Settings, window schedule.Window) error {
	payload, err := FormatSettings(settings, window)
	if err != nil {
		return fmt.Errorf("format settings: %w", err)
	}
	return p.publish(p.settings, true, payload)
}

func (p *RealPublisher) publish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.logger.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("Published")
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
