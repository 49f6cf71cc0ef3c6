// Package main is the entry point for the ridgecam capture engine daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/api"
	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/camera"
	"github.com/alpenglow-labs/ridgecam/internal/config"
	"github.com/alpenglow-labs/ridgecam/internal/history"
	"github.com/alpenglow-labs/ridgecam/internal/light"
	"github.com/alpenglow-labs/ridgecam/internal/schedule"
	"github.com/alpenglow-labs/ridgecam/internal/scheduler"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
	"github.com/alpenglow-labs/ridgecam/pkg/mqtt"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config (overrides RIDGECAM_CONFIG)")
	envFile := flag.String("env-file", "", "Optional .env file to load before reading the environment")
	logLevel := flag.String("log-level", "", "Log level (debug, info); overrides RIDGECAM_LOG_LEVEL")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			panic("failed to load env file: " + err.Error())
		}
	} else {
		// Best effort: a local .env is a dev convenience, not a requirement.
		_ = godotenv.Load()
	}

	env, err := config.LoadEnv()
	if err != nil {
		panic("failed to read environment: " + err.Error())
	}

	level := env.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}

	var logger *zap.Logger
	switch level {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	path := env.ConfigPath
	if *configPath != "" {
		path = *configPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	env.Apply(cfg)

	logger.Info("Starting ridgecam capture engine",
		zap.String("config", path),
		zap.Float64("latitude", cfg.Site.Latitude),
		zap.Float64("longitude", cfg.Site.Longitude),
		zap.String("camera", cfg.Camera.BaseURL),
		zap.Int("schedules", len(cfg.Schedules)),
		zap.Int("profiles", len(cfg.Profiles)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shutdown functions run in reverse registration order.
	var shutdownFuncs []func(ctx context.Context) error
	registerShutdown := func(fn func(ctx context.Context) error) {
		shutdownFuncs = append(shutdownFuncs, fn)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Invalid timezone", zap.Error(err))
	}

	resolver, err := schedule.NewResolver(cfg.Site.Latitude, cfg.Site.Longitude, loc, logger)
	if err != nil {
		logger.Fatal("Failed to create schedule resolver", zap.Error(err))
	}

	deviceClient, err := camera.NewClient(cfg.Camera.BaseURL, cfg.Camera.Timeout, logger)
	if err != nil {
		logger.Fatal("Failed to create device client", zap.Error(err))
	}
	healthTracker := camera.NewHealthTracker(0, logger)

	// Optional MQTT: outcomes, light samples and engine health go to the
	// dashboard when a broker is configured.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(&mqtt.Config{
			BrokerURL:            cfg.MQTT.BrokerURL,
			ClientID:             cfg.MQTT.ClientID,
			Username:             cfg.MQTT.Username,
			Password:             cfg.MQTT.Password,
			KeepAlive:            cfg.MQTT.KeepAlive,
			ConnectTimeout:       cfg.MQTT.ConnectTimeout,
			AutoReconnect:        true,
			MaxReconnectInterval: 60 * time.Second,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create MQTT client", zap.Error(err))
		}
		if err := mqttClient.Connect(); err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		registerShutdown(func(ctx context.Context) error {
			mqttClient.Disconnect()
			return nil
		})
	}

	var lightPublisher light.PublishFunc
	if mqttClient != nil {
		lightPublisher = func(sample light.Sample) error {
			return mqttClient.PublishJSON(mqtt.LightSampleTopic(), 0, false, sample)
		}
	}

	sensor := camera.NewMeteringSensor(deviceClient, cfg.Site.Latitude, cfg.Site.Longitude)
	monitor, err := light.NewMonitor(sensor, cfg.Light.Interval, lightPublisher, logger)
	if err != nil {
		logger.Fatal("Failed to create light monitor", zap.Error(err))
	}
	go func() {
		if err := monitor.Start(ctx); err != nil {
			logger.Error("Light monitor exited", zap.Error(err))
		}
	}()
	registerShutdown(func(ctx context.Context) error {
		monitor.Stop()
		return nil
	})

	computer := settings.NewDeviceComputer(sensor, deviceClient)
	cache := settings.NewCache(computer, cfg.SettingsThresholds(), logger)

	controller := burst.NewController(deviceClient, logger).
		WithTimeouts(cfg.Camera.Timeout, cfg.Scheduler.BurstTimeout)

	var sinks []history.Sink
	if mqttClient != nil {
		sinks = append(sinks, history.NewMQTTSink(mqttClient, "engine:capture"))
	}

	var store *history.Store
	if cfg.History.DatabaseURL != "" {
		store, err = history.NewStore(ctx, history.StoreConfig{DatabaseURL: cfg.History.DatabaseURL}, logger)
		if err != nil {
			logger.Fatal("Failed to open history store", zap.Error(err))
		}
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare history schema", zap.Error(err))
		}
		sinks = append(sinks, store)
		registerShutdown(func(ctx context.Context) error {
			store.Close()
			return nil
		})
	}

	recorder := history.NewRecorder(cfg.History.Retention, logger, sinks...)

	loop, err := scheduler.New(scheduler.Config{
		Tick:        cfg.Scheduler.Tick,
		Definitions: cfg.ScheduleDefinitions(),
		Profiles:    cfg.BurstProfiles(),
	}, scheduler.Deps{
		Windows:  resolver,
		Light:    monitor,
		Settings: cache,
		Bursts:   controller,
		Health:   healthTracker,
		History:  recorder,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create scheduler", zap.Error(err))
	}
	go func() {
		if err := loop.Start(ctx); err != nil {
			logger.Error("Scheduler exited", zap.Error(err))
		}
	}()
	registerShutdown(loop.Stop)

	healthEngine := healthcheck.NewEngine(logger, 15*time.Second)
	healthEngine.Register(healthTracker)
	healthEngine.Register(monitor)
	healthEngine.Register(loop)
	if store != nil {
		healthEngine.Register(store)
	}
	go healthEngine.Start(ctx)
	registerShutdown(func(ctx context.Context) error {
		healthEngine.Stop()
		return nil
	})

	if mqttClient != nil {
		reporter := healthcheck.NewReporter(healthEngine, func(ctx context.Context, result *healthcheck.AggregatedResult) error {
			return mqttClient.PublishJSON(mqtt.EngineHealthTopic("capture"), 0, true, result)
		}, logger)
		go reporter.StartReporting(ctx, 30*time.Second)
	}

	server, err := api.NewServer(api.Config{ListenAddr: cfg.API.ListenAddr}, api.Deps{
		Device:    healthTracker,
		Health:    healthEngine,
		History:   recorder,
		Scheduler: loop,
		Settings:  cache,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create API server", zap.Error(err))
	}
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("API server exited", zap.Error(err))
		}
	}()
	registerShutdown(func(ctx context.Context) error {
		server.Stop()
		return nil
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Capture engine running, press Ctrl+C to stop")
	<-sigChan
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	exitCode := 0
	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
			exitCode = 1
		}
	}
	cancel()

	logger.Info("Capture engine stopped")
	os.Exit(exitCode)
}
