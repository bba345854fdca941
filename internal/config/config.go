package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultNWSUserAgent = "TheWeatherSpectrum (contact@theweatherspectrum.com)"
	minSessionKeyLength = 32
)

// Config holds the site API settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	OpsAddr         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Outbound data sources.
	SPCBaseURL        string
	ZIPAPIBaseURL     string
	NWSBaseURL        string
	NWSUserAgent      string
	WindyBaseURL      string
	WindyAPIKey       string
	HTTPClientTimeout time.Duration
	Location          *time.Location // calendar used for "today"

	// Event enrichment.
	EnrichViaRelay   bool
	NominatimBaseURL string
	CensusBaseURL    string
	CensusAPIKey     string
	MapboxToken      string
	MapboxEnabled    bool
	GeocodeCacheSize int

	// Notification relay.
	RelayURL    string
	RelaySecret string

	// Admin panel and sessions.
	DBPath            string
	AdminPasswordHash string
	SessionKey        []byte
	SessionMaxAge     time.Duration
	CookieSecure      bool

	// Site API.
	RateLimitRPS    int
	ViewIdleTimeout time.Duration
	MaxViews        int
	OneSignalAppID  string
	AllowedOrigins  []string
}

// Load reads the site configuration, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	clientTimeout, err := parseDuration("HTTP_CLIENT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	sessionMaxAge, err := parseDuration("SESSION_MAX_AGE", "8h")
	if err != nil {
		return nil, err
	}
	idleTimeout, err := parseDuration("VIEW_IDLE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	rps, err := parsePositiveInt("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, err
	}
	maxViews, err := parsePositiveInt("MAX_VIEWS", 10000)
	if err != nil {
		return nil, err
	}
	enrichViaRelay, err := parseBool("ENRICH_VIA_RELAY", false)
	if err != nil {
		return nil, err
	}
	cookieSecure, err := parseBool("COOKIE_SECURE", true)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("TZ_LOCATION", "America/Chicago"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_LOCATION: %w", err)
	}
	sessionKey, err := parseSessionKey()
	if err != nil {
		return nil, err
	}
	mapboxToken, mapboxEnabled, err := parseMapbox()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		OpsAddr:         sharedcfg.EnvOrDefault("OPS_ADDR", ":9090"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SPCBaseURL:        os.Getenv("SPC_BASE_URL"),
		ZIPAPIBaseURL:     os.Getenv("ZIP_API_BASE_URL"),
		NWSBaseURL:        os.Getenv("NWS_BASE_URL"),
		NWSUserAgent:      sharedcfg.EnvOrDefault("NWS_USER_AGENT", defaultNWSUserAgent),
		WindyBaseURL:      os.Getenv("WINDY_BASE_URL"),
		WindyAPIKey:       os.Getenv("WINDY_API_KEY"),
		HTTPClientTimeout: clientTimeout,
		Location:          loc,

		EnrichViaRelay:   enrichViaRelay,
		NominatimBaseURL: os.Getenv("NOMINATIM_BASE_URL"),
		CensusBaseURL:    os.Getenv("CENSUS_BASE_URL"),
		CensusAPIKey:     os.Getenv("CENSUS_API_KEY"),
		MapboxToken:      mapboxToken,
		MapboxEnabled:    mapboxEnabled,
		GeocodeCacheSize: cacheSize,

		RelayURL:    os.Getenv("RELAY_URL"),
		RelaySecret: os.Getenv("RELAY_SECRET"),

		DBPath:            sharedcfg.EnvOrDefault("DB_PATH", "spectrum.db"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		SessionKey:        sessionKey,
		SessionMaxAge:     sessionMaxAge,
		CookieSecure:      cookieSecure,

		RateLimitRPS:    rps,
		ViewIdleTimeout: idleTimeout,
		MaxViews:        maxViews,
		OneSignalAppID:  os.Getenv("ONESIGNAL_APP_ID"),
		AllowedOrigins:  sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("ALLOWED_ORIGINS", "*")),
	}

	if cfg.EnrichViaRelay && cfg.RelayURL == "" {
		return nil, errors.New("ENRICH_VIA_RELAY is true but RELAY_URL is not set")
	}
	if cfg.AdminPasswordHash != "" && cfg.RelayURL == "" {
		return nil, errors.New("ADMIN_PASSWORD_HASH is set but RELAY_URL is not set")
	}
	return cfg, nil
}

// RelayConfig holds the notification relay settings.
type RelayConfig struct {
	RelayAddr       string
	OpsAddr         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	OneSignalAppID         string
	OneSignalAPIKey        string
	OneSignalAPIURL        string
	RelaySecret            string
	DefaultNotificationURL string

	HTTPClientTimeout  time.Duration
	NominatimBaseURL   string
	NominatimUserAgent string
	CensusBaseURL      string
	CensusAPIKey       string
	MapboxToken        string
	MapboxEnabled      bool
	GeocodeCacheSize   int

	KafkaEnabled           bool
	KafkaBrokers           []string
	KafkaNotificationTopic string
}

// LoadRelay reads the relay configuration, applying defaults where unset.
func LoadRelay() (*RelayConfig, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	clientTimeout, err := parseDuration("HTTP_CLIENT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}
	mapboxToken, mapboxEnabled, err := parseMapbox()
	if err != nil {
		return nil, err
	}

	cfg := &RelayConfig{
		RelayAddr:       sharedcfg.EnvOrDefault("RELAY_ADDR", ":8787"),
		OpsAddr:         sharedcfg.EnvOrDefault("OPS_ADDR", ":9091"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OneSignalAppID:         os.Getenv("ONESIGNAL_APP_ID"),
		OneSignalAPIKey:        os.Getenv("ONESIGNAL_REST_API_KEY"),
		OneSignalAPIURL:        os.Getenv("ONESIGNAL_API_URL"),
		RelaySecret:            os.Getenv("RELAY_SECRET"),
		DefaultNotificationURL: sharedcfg.EnvOrDefault("DEFAULT_NOTIFICATION_URL", "https://theweatherspectrum.com"),

		HTTPClientTimeout:  clientTimeout,
		NominatimBaseURL:   os.Getenv("NOMINATIM_BASE_URL"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", defaultNWSUserAgent),
		CensusBaseURL:      os.Getenv("CENSUS_BASE_URL"),
		CensusAPIKey:       os.Getenv("CENSUS_API_KEY"),
		MapboxToken:        mapboxToken,
		MapboxEnabled:      mapboxEnabled,
		GeocodeCacheSize:   cacheSize,

		KafkaEnabled:           kafkaEnabled,
		KafkaBrokers:           sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotificationTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFICATION_TOPIC", "notification-audit"),
	}

	if cfg.OneSignalAppID == "" {
		return nil, errors.New("ONESIGNAL_APP_ID is required")
	}
	if cfg.OneSignalAPIKey == "" {
		return nil, errors.New("ONESIGNAL_REST_API_KEY is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaNotificationTopic == "" {
		return nil, errors.New("KAFKA_NOTIFICATION_TOPIC is required when KAFKA_ENABLED is true")
	}
	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}

// parseMapbox enables Mapbox when a token is present unless MAPBOX_ENABLED
// says otherwise.
func parseMapbox() (string, bool, error) {
	token := os.Getenv("MAPBOX_TOKEN")
	enabled := token != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		enabled = v == "true"
	}
	if enabled && token == "" {
		return "", false, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return token, enabled, nil
}

// parseSessionKey decodes SESSION_KEY (base64) or generates a random key, in
// which case sessions do not survive a restart.
func parseSessionKey() ([]byte, error) {
	s := os.Getenv("SESSION_KEY")
	if s == "" {
		key := make([]byte, minSessionKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) < minSessionKeyLength {
		return nil, fmt.Errorf("invalid SESSION_KEY: must be base64 of at least %d bytes", minSessionKeyLength)
	}
	return key, nil
}
