package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/afroash/comfort-hub/internal/client"
	"github.com/afroash/comfort-hub/internal/config"
	"github.com/afroash/comfort-hub/internal/gpio"
	"github.com/afroash/comfort-hub/internal/logging"
	"github.com/afroash/comfort-hub/internal/models"
	"github.com/afroash/comfort-hub/internal/sensor"
	"github.com/rs/zerolog"
)

const version = "v0.3.0"

func main() {
	configPath := flag.String("config", "configs/hub.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadHubConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Logging, "comfort-hub")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	logger = logger.With().Str("hub_id", cfg.Hub.ID).Logger()

	logger.Info().Str("version", version).Msg("Starting comfort hub")
	logger.Debug().Msg(cfg.String())

	hw, err := openHardware(cfg.GPIO)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open hardware")
		logCloser.Close()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run(ctx, cfg, hw, logger)
	logger.Info().Msg("Hub stopped")
}

// hardware is everything the hub drives: the DHT, the PIR and both relays
type hardware struct {
	temperature sensor.TemperatureSensor
	presence    gpio.PresenceReader
	actuators   *gpio.Actuators
}

func openHardware(cfg config.GPIOSettings) (*hardware, error) {
	dht, err := sensor.NewDHT11Reader(cfg.DHTPin, sensor.WithRetries(cfg.ReadRetries))
	if err != nil {
		return nil, err
	}
	pir, err := gpio.NewRealPresence(cfg.Chip, cfg.PIRPin)
	if err != nil {
		dht.Close()
		return nil, err
	}
	actuators, err := openActuators(cfg)
	if err != nil {
		dht.Close()
		pir.Close()
		return nil, err
	}
	return &hardware{temperature: dht, presence: pir, actuators: actuators}, nil
}

// openActuators requests the relay pins. A pin of 0 leaves that actuator unwired.
func openActuators(cfg config.GPIOSettings) (*gpio.Actuators, error) {
	open := func(pin int) (gpio.Relay, error) {
		if pin == 0 {
			return &gpio.NopRelay{}, nil
		}
		return gpio.NewRealRelay(cfg.Chip, pin, cfg.ActiveLow)
	}

	fan, err := open(cfg.FanPin)
	if err != nil {
		return nil, err
	}
	light, err := open(cfg.LightPin)
	if err != nil {
		fan.Close()
		return nil, err
	}
	return &gpio.Actuators{Fan: fan, Light: light}, nil
}

// run samples the sensors, streams readings to the server and applies the
// decisions it sends back until ctx is cancelled. The hardware is released
// before it returns.
func run(ctx context.Context, cfg *config.HubConfig, hw *hardware, logger zerolog.Logger) {
	reader := sensor.NewReader(hw.temperature, hw.presence, cfg.Hub.ReadInterval, logger.With().Str("component", "sensor").Logger())
	defer reader.Close()
	defer func() {
		if err := hw.actuators.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to release relays")
		}
	}()

	buffer := client.NewReadingBuffer(cfg.Buffer.Size, cfg.Buffer.DropOldest)
	conn := client.NewConnection(client.ConnectionConfig{
		URL:                  cfg.Server.URL,
		ConnectTimeout:       cfg.Server.ConnectTimeout,
		ReconnectInterval:    cfg.Server.ReconnectInterval,
		MaxReconnectInterval: cfg.Server.MaxReconnectInterval,
		PingInterval:         cfg.Server.PingInterval,
		PongTimeout:          cfg.Server.PongTimeout,
	}, models.NewHubInfo(cfg.Hub.ID, cfg.Hub.Location, version), buffer, logger.With().Str("component", "connection").Logger())
	conn.OnDecision(applyDecision(hw.actuators, logger))

	forwarder := client.NewForwarder(conn, buffer, cfg.Buffer.BatchSize, logger.With().Str("component", "forwarder").Logger())

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		reader.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		conn.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		forwarder.Run(ctx, reader.Readings())
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down hub...")
	conn.Close()
	wg.Wait()

	logger.Info().Str("buffer", buffer.String()).Msg("Final buffer state")
}

// applyDecision drives the relays when a decision changes their state
func applyDecision(actuators *gpio.Actuators, logger zerolog.Logger) client.DecisionHandler {
	return func(decision models.Decision) {
		if decision == actuators.State() {
			return
		}
		if err := actuators.Apply(decision); err != nil {
			logger.Error().Err(err).Msg("Failed to drive relays")
			return
		}
		logger.Info().Str("fan", string(decision.Fan)).Str("light", string(decision.Light)).Msg("Relays updated")
	}
}
