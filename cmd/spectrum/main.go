package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	httpadapter "github.com/couchcryptid/weather-spectrum/internal/adapter/http"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/nws"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/relayclient"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/spc"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/windy"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/zippopotam"
	"github.com/couchcryptid/weather-spectrum/internal/admin"
	"github.com/couchcryptid/weather-spectrum/internal/api"
	"github.com/couchcryptid/weather-spectrum/internal/cache"
	"github.com/couchcryptid/weather-spectrum/internal/config"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/enrich"
	"github.com/couchcryptid/weather-spectrum/internal/hailmap"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/couchcryptid/weather-spectrum/internal/push"
	"github.com/couchcryptid/weather-spectrum/internal/repository"
	"github.com/couchcryptid/weather-spectrum/internal/weather"
	"github.com/couchcryptid/weather-spectrum/internal/webcams"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	feed := spc.NewClient(cfg.SPCBaseURL, cfg.HTTPClientTimeout, metrics, logger)
	zips := cache.NewCachedZipResolver(zippopotam.NewClient(cfg.ZIPAPIBaseURL, cfg.HTTPClientTimeout, metrics), cfg.GeocodeCacheSize, metrics)

	var relay *relayclient.Client
	if cfg.RelayURL != "" {
		relay = relayclient.NewClient(cfg.RelayURL, cfg.RelaySecret, cfg.HTTPClientTimeout, metrics, logger)
	}

	var enricher domain.Enricher
	if cfg.EnrichViaRelay {
		enricher = relay
		logger.Info("event enrichment via relay", "url", cfg.RelayURL)
	} else {
		enricher = enrich.New(enrich.Config{
			MapboxEnabled:      cfg.MapboxEnabled,
			MapboxToken:        cfg.MapboxToken,
			NominatimBaseURL:   cfg.NominatimBaseURL,
			NominatimUserAgent: cfg.NWSUserAgent,
			CensusBaseURL:      cfg.CensusBaseURL,
			CensusAPIKey:       cfg.CensusAPIKey,
			Timeout:            cfg.HTTPClientTimeout,
			CacheSize:          cfg.GeocodeCacheSize,
		}, metrics, logger)
	}

	factory := func() *hailmap.Controller {
		return hailmap.New(feed, zips, enricher, logger, metrics, hailmap.WithLocation(cfg.Location))
	}
	clock := clockwork.NewRealClock()
	views := api.NewViewRegistry(factory, cfg.ViewIdleTimeout, cfg.MaxViews, clock, metrics)

	var live webcams.Source
	if cfg.WindyAPIKey != "" {
		live = windy.NewClient(cfg.WindyBaseURL, cfg.WindyAPIKey, cfg.HTTPClientTimeout, metrics)
	} else {
		logger.Info("live webcams disabled")
	}

	if cfg.OneSignalAppID != "" {
		if _, err := push.Init(push.Settings{AppID: cfg.OneSignalAppID, NotifyButtonEnabled: true}); err != nil {
			logger.Error("push init failed", "error", err)
		}
		defer push.Shutdown()
	} else {
		logger.Info("push notifications disabled")
	}

	auth, err := admin.NewAuthenticator(cfg.AdminPasswordHash)
	if err != nil {
		logger.Error("invalid admin password hash", "error", err)
		os.Exit(1)
	}

	checks := httpadapter.Checks{}
	var adminSvc *admin.Service
	if auth.Enabled() {
		db, err := repository.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open notification history", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("sqlite close error", "error", err)
			}
		}()
		adminSvc = admin.NewService(relay, db, logger)
		checks = append(checks, httpadapter.Check{Name: "sqlite", Ping: db.Ping})
		logger.Info("admin panel enabled", "db_path", cfg.DBPath)
	} else {
		logger.Info("admin panel disabled")
	}

	viewStore := sessions.NewCookieStore(cfg.SessionKey)
	viewStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.ViewIdleTimeout.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	handler := api.NewHandler(api.Deps{
		Views:     views,
		Weather:   weather.NewService(nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.HTTPClientTimeout, metrics), zips, logger),
		Webcams:   webcams.NewService(live, webcams.DefaultCustom(), logger),
		ViewStore: viewStore,
		Auth:      auth,
		Sessions:  admin.NewSessions(sessions.NewCookieStore(cfg.SessionKey), cfg.SessionMaxAge, cfg.CookieSecure),
		Admin:     adminSvc,
		Logger:    logger,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
	})

	srv := httpadapter.NewServer("api", cfg.HTTPAddr, router, logger)
	ops := httpadapter.NewOpsServer(cfg.OpsAddr, checks, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go views.Run(ctx)
	srvErr := srv.Run()
	opsErr := ops.Run()

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			logger.Error("http server error", "error", err)
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
		logger.Error("http server shutdown error", "error", err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
