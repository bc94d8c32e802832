package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/afroash/comfort-hub/internal/config"
	"github.com/afroash/comfort-hub/internal/control"
	"github.com/afroash/comfort-hub/internal/logging"
	"github.com/afroash/comfort-hub/internal/metrics"
	"github.com/afroash/comfort-hub/internal/mqtt"
	"github.com/afroash/comfort-hub/internal/schedule"
	"github.com/afroash/comfort-hub/internal/server"
	"github.com/afroash/comfort-hub/internal/storage"
)

const version = "v0.3.0"

func main() {
	configPath := flag.String("config", "configs/server.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Logging, "comfort-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	logger.Info().
		Str("version", version).
		Str("addr", cfg.Addr()).
		Msg("Starting comfort hub server")
	logger.Debug().Msg(cfg.String())

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid timezone")
	}

	var (
		m              *metrics.Metrics
		httpMetrics    server.HTTPMetrics
		engineObserver control.Observer
		streamObserver server.StreamObserver
		lookupObserver schedule.LookupObserver
		archiveObs     storage.ArchiveObserver
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		httpMetrics, engineObserver, streamObserver, lookupObserver, archiveObs = m, m, m, m, m
		logger.Info().Str("path", cfg.Metrics.Path).Msg("Metrics enabled")
	}

	sunset := schedule.NewSunsetClient(schedule.SunsetConfig{
		URL:      cfg.Schedule.SunsetURL,
		Timeout:  cfg.Schedule.SunsetTimeout,
		Location: loc,
		Observer: lookupObserver,
	}, logger.With().Str("component", "sunset").Logger())
	resolver := schedule.NewResolver(sunset, cfg.Schedule.Latitude, cfg.Schedule.Longitude)
	engine := control.NewEngine(resolver, control.EngineConfig{
		WrapMidnight: cfg.Schedule.WrapMidnight,
	}, engineObserver, logger.With().Str("component", "engine").Logger())

	store := server.NewMemoryStore()
	opts := control.Options{Location: loc}

	var (
		sqliteStore      *storage.SQLiteStore
		dbWriter         *storage.DBWriter
		retentionCleaner *storage.RetentionCleaner
		cleanerDone      chan struct{}
		archive          server.ArchiveStore
	)
	cleanerCtx, stopCleaner := context.WithCancel(context.Background())
	defer stopCleaner()
	if cfg.Archive.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Archive.DBPath), 0755); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create data directory")
		}
		sqliteStore, err = storage.NewSQLiteStore(cfg.Archive.DBPath, logger.With().Str("component", "archive").Logger())
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open archive")
		}
		archive = sqliteStore

		dbWriter = storage.NewDBWriter(sqliteStore, storage.DBWriterConfig{
			BatchSize:   cfg.Archive.BatchSize,
			FlushPeriod: cfg.Archive.FlushPeriod,
			ChannelSize: cfg.Archive.ChannelSize,
			Observer:    archiveObs,
		}, logger.With().Str("component", "dbwriter").Logger())
		opts.Archive = dbWriter

		retentionCleaner = storage.NewRetentionCleaner(sqliteStore, storage.RetentionCleanerConfig{
			RetentionDays: cfg.Archive.RetentionDays,
			CleanupPeriod: cfg.Archive.CleanupPeriod,
			Observer:      archiveObs,
		}, logger.With().Str("component", "retention").Logger())
		cleanerDone = make(chan struct{})
		go func() {
			defer close(cleanerDone)
			retentionCleaner.Run(cleanerCtx)
		}()
	}

	var publisher mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher, err = mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		}, logger.With().Str("component", "mqtt").Logger())
		if err != nil {
			logger.Fatal().Err(err).Str("broker", cfg.MQTT.Broker).Msg("Failed to connect to MQTT broker")
		}
		opts.Publisher = publisher
	}

	controller := control.NewController(store, engine, opts, logger.With().Str("component", "controller").Logger())
	apiHandler := server.NewAPIHandler(controller, store, archive, version, logger)
	streamHandler := server.NewStreamHandler(controller, streamObserver, logger, cfg.Server.AllowedOrigins...)

	router := server.NewRouter(server.RouterConfig{
		API:            apiHandler,
		Stream:         streamHandler,
		Metrics:        httpMetrics,
		MetricsPath:    cfg.Metrics.Path,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Archive:        cfg.Archive.Enabled,
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}
	streamHandler.Close()

	if publisher != nil {
		publisher.Close()
		logger.Info().Msg("MQTT publisher closed")
	}
	if dbWriter != nil {
		dbWriter.Stop()
		logger.Info().Interface("stats", dbWriter.Stats()).Msg("DBWriter stopped")
	}
	if retentionCleaner != nil {
		stopCleaner()
		<-cleanerDone
		logger.Info().Interface("stats", retentionCleaner.Stats()).Msg("RetentionCleaner stopped")
	}
	if sqliteStore != nil {
		sqliteStore.Close()
		logger.Info().Msg("Archive closed")
	}

	logger.Info().Msg("Server stopped")
}
