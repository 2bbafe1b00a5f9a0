package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"tado_bridge/internal/api"
	"tado_bridge/internal/auth"
	"tado_bridge/internal/central"
	"tado_bridge/internal/collector"
	"tado_bridge/internal/command"
	"tado_bridge/internal/config"
	"tado_bridge/internal/device"
	"tado_bridge/internal/history"
	"tado_bridge/internal/mqtt"
	"tado_bridge/internal/openweather"
	"tado_bridge/internal/poller"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Tado Bridge", "listen_addr", cfg.ListenAddr, "home_id", cfg.HomeID)
	if !cfg.FileLoaded {
		logger.Warn("Config file not found, running without devices", "path", cfg.Path)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Bridge failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Bridge stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Devices
	specs, err := cfg.DeviceSpecs()
	if err != nil {
		return err
	}
	registry, err := device.NewRegistry()
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := registry.Add(device.New(spec)); err != nil {
			return err
		}
	}

	// Remote API
	var authorizer api.Authorizer = auth.QueryCredentials{Username: cfg.Username, Password: cfg.Password}
	if cfg.API.AuthMode == config.AuthToken {
		authorizer = auth.NewTokenSource(
			auth.Credentials{Username: cfg.Username, Password: cfg.Password},
			cfg.API.TokenURL, cfg.API.ClientID, cfg.API.ClientSecret, logger)
	}
	gate := api.NewGate(cfg.RequestTimeout, logger)
	baseURL := cfg.API.BaseURL
	if baseURL == "" {
		baseURL = api.DefaultBaseURL
	}
	client := api.NewClient(gate, baseURL, authorizer)

	// Presentation and history
	var publishers device.Publishers
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer mqttClient.Close()
		publishers = append(publishers, mqttClient)
	}

	var sink device.SampleSink = device.NopSampleSink{}
	historySink, err := history.Connect(cfg.InfluxDB, logger)
	switch {
	case err == nil:
		defer historySink.Close()
		sink = historySink
	case errors.Is(err, history.ErrDisabled):
		logger.Debug("History disabled")
	default:
		return err
	}

	bridgeCollector := collector.NewBridgeCollector(registry, logger)
	prometheus.MustRegister(bridgeCollector)

	// Commands
	issuer := command.NewIssuer(client, registry, logger,
		command.WithExtendedDelay(cfg.ExtendedDelay),
		command.WithRevertGrace(cfg.RevertGrace()),
		command.WithPublisher(publishers),
		command.WithSampleSink(sink),
		command.WithWriteTimeout(cfg.RequestTimeout),
	)

	var aggregator *central.Aggregator
	if centrals := registry.ListByKind(device.KindCentral); len(centrals) > 0 {
		aggregator, err = central.NewAggregator(registry, centrals[0], issuer, publishers, logger)
		if err != nil {
			return err
		}
	}

	// Poll tasks
	sources := poller.Sources{
		Zones:    client,
		Weather:  client,
		TimeZone: cfg.Location(),
	}
	if cfg.ExtendedWeather.Enabled {
		owURL := cfg.ExtendedWeather.BaseURL
		if owURL == "" {
			owURL = openweather.DefaultBaseURL
		}
		sources.OpenWeather = openweather.NewClient(gate, owURL, cfg.ExtendedWeather.Key, cfg.ExtendedWeather.Location)
	}
	tasks, err := poller.Plan(registry, sources, poller.Options{
		Interval:  cfg.PollInterval,
		Publisher: publishers,
		Sink:      sink,
		Observer:  bridgeCollector,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	logger.Info("Devices configured", "devices", len(registry.All()), "poll_tasks", len(tasks))

	g, gctx := errgroup.WithContext(ctx)

	if mqttClient != nil {
		var centralSwitch mqtt.Central
		if aggregator != nil {
			centralSwitch = aggregator
		}
		dispatcher := mqtt.NewDispatcher(cfg.MQTT.TopicPrefix, registry, issuer, centralSwitch, logger)
		if err := mqttClient.ServeCommands(gctx, dispatcher); err != nil {
			return err
		}
	}

	for _, task := range tasks {
		task := task
		g.Go(func() error { return task.Run(gctx) })
	}
	if aggregator != nil {
		g.Go(func() error { return aggregator.Run(gctx) })
	}

	// Reload settings on SIGHUP
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				reload(cfg.Path, registry, issuer, logger)
			}
		}
	})

	// Setup HTTP server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/devices", devicesHandler(registry, logger))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// reload re-reads the configuration file and applies changed settings to
// existing devices. Added or removed devices need a restart.
func reload(path string, registry *device.Registry, issuer *command.Issuer, logger *slog.Logger) {
	logger.Info("Reloading configuration", "path", path)
	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logger.Error("Reload failed, keeping current settings", "error", err)
		return
	}
	specs, err := cfg.DeviceSpecs()
	if err != nil {
		logger.Error("Reload failed, keeping current settings", "error", err)
		return
	}
	for _, spec := range specs {
		if _, err := registry.GetByName(spec.Name); err != nil {
			logger.Warn("New device ignored until restart", "device", spec.Name)
			continue
		}
		if err := issuer.ApplySettings(spec.Name, spec.Settings); err != nil {
			logger.Error("Failed to apply settings", "device", spec.Name, "error", err)
		}
	}
}

// setupLogger creates a structured logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler

	logLevel := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
