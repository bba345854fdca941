package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	httpadapter "github.com/couchcryptid/weather-spectrum/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-spectrum/internal/adapter/kafka"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/onesignal"
	"github.com/couchcryptid/weather-spectrum/internal/config"
	"github.com/couchcryptid/weather-spectrum/internal/enrich"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/couchcryptid/weather-spectrum/internal/relay"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sender := onesignal.NewClient(cfg.OneSignalAppID, cfg.OneSignalAPIKey, cfg.OneSignalAPIURL, cfg.HTTPClientTimeout, metrics)
	opts := []relay.Option{relay.WithDefaultURL(cfg.DefaultNotificationURL)}
	if cfg.RelaySecret != "" {
		opts = append(opts, relay.WithSecret(cfg.RelaySecret))
	} else {
		logger.Warn("relay secret not set, /send-notification is unauthenticated")
	}

	checks := httpadapter.Checks{}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaNotificationTopic, logger)
		opts = append(opts, relay.WithAuditor(writer))
		checks = append(checks, httpadapter.Check{Name: "kafka", Ping: writer.Ping})
		logger.Info("notification audit enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaNotificationTopic)
	}

	enricher := enrich.New(enrich.Config{
		MapboxEnabled:      cfg.MapboxEnabled,
		MapboxToken:        cfg.MapboxToken,
		NominatimBaseURL:   cfg.NominatimBaseURL,
		NominatimUserAgent: cfg.NominatimUserAgent,
		CensusBaseURL:      cfg.CensusBaseURL,
		CensusAPIKey:       cfg.CensusAPIKey,
		Timeout:            cfg.HTTPClientTimeout,
		CacheSize:          cfg.GeocodeCacheSize,
	}, metrics, logger)
	handler := relay.New(sender, enricher, logger, metrics, opts...)

	srv := httpadapter.NewServer("relay", cfg.RelayAddr, handler, logger)
	ops := httpadapter.NewOpsServer(cfg.OpsAddr, checks, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvErr := srv.Run()
	opsErr := ops.Run()

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			logger.Error("relay server error", "error", err)
		}
	case err := <-opsErr:
		if err != nil {
			logger.Error("ops server error", "error", err)
		}
	}
	stop()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("relay server shutdown error", "error", err)
	}
	handler.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
