package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// DefaultAirports is the watch-list used when FLIGHTWATCH_AIRPORTS is unset.
var DefaultAirports = []string{"OJAI", "OJAM", "OSDI", "ORBI"}

// Config holds all flightwatch configuration.
type Config struct {
	Env       string
	Connector ConnectorConfig
	Engine    EngineConfig
	Schedule  ScheduleConfig
	Notifier  NotifierConfig
	Discord   DiscordConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
	OTel      OTelConfig
	Log       LogConfig
}

// ConnectorConfig holds tracker connector settings.
type ConnectorConfig struct {
	Provider     string
	APIKey       string
	Endpoint     string
	Extra        map[string]string
	FetchTimeout time.Duration
}

// EngineConfig holds classification settings.
type EngineConfig struct {
	Airports    []string
	AirportsCSV string        // optional airport metadata file
	DedupWindow time.Duration // how long a reported key is remembered
}

// ScheduleConfig controls pass cadence.
type ScheduleConfig struct {
	Spec       string // cron expression or descriptor
	RunOnStart bool
}

// NotifierConfig selects and tunes delivery destinations.
type NotifierConfig struct {
	Kinds           []string // "discord", "webhook", "stdout"
	WebhookURL      string
	WebhookPlain    bool // post text lines instead of cards
	AuditFile       string
	AuditMaxSize    int64
	Pretty          bool
	Workers         int
	DeliveryTimeout time.Duration
	Retention       time.Duration // 0 keeps delivered messages forever
}

// DiscordConfig holds chat bot credentials.
type DiscordConfig struct {
	Token     string
	ChannelID string
}

func (c DiscordConfig) Enabled() bool {
	return c.Token != ""
}

// RedisConfig enables the shared reported-event store.
type RedisConfig struct {
	URL    string
	Prefix string
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// HTTPConfig controls the status/listing server.
type HTTPConfig struct {
	Addr string
}

func (c HTTPConfig) Enabled() bool {
	return c.Addr != ""
}

// OTelConfig holds OTLP exporter settings.
type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// LogConfig holds logger settings.
type LogConfig struct {
	Format string // "json" or "text"
	Level  string
}

// IsDevelopment reports whether .env files are honoured.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HasNotifier reports whether kind is among the configured notifiers.
func (c NotifierConfig) HasNotifier(kind string) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Load reads configuration from environment variables with sensible
// defaults. In development a .env file in the working directory is loaded
// first; a missing file is not an error.
func Load() (Config, error) {
	env := getenv("FLIGHTWATCH_ENV", "development")
	if env == "development" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("could not load .env file", "error", err)
		}
	}

	fetchTimeout := getenvDuration("FLIGHTWATCH_FETCH_TIMEOUT", 20*time.Second)
	retention := getenvDuration("FLIGHTWATCH_MESSAGE_RETENTION", 24*time.Hour)
	dedupWindow := retention
	if dedupWindow <= 0 {
		dedupWindow = 24 * time.Hour
	}

	cfg := Config{
		Env: env,
		Connector: ConnectorConfig{
			Provider:     getenv("FLIGHTWATCH_CONNECTOR", "ivao"),
			APIKey:       os.Getenv("FLIGHTWATCH_API_KEY"),
			Endpoint:     os.Getenv("FLIGHTWATCH_ENDPOINT"),
			Extra:        loadConnectorExtra(),
			FetchTimeout: fetchTimeout,
		},
		Engine: EngineConfig{
			Airports:    getenvList("FLIGHTWATCH_AIRPORTS", DefaultAirports),
			AirportsCSV: os.Getenv("FLIGHTWATCH_AIRPORTS_CSV"),
			DedupWindow: getenvDuration("FLIGHTWATCH_DEDUP_WINDOW", dedupWindow),
		},
		Schedule: ScheduleConfig{
			Spec:       getenv("FLIGHTWATCH_SCHEDULE", "* * * * *"),
			RunOnStart: getenvBool("FLIGHTWATCH_RUN_ON_START", false),
		},
		Notifier: NotifierConfig{
			Kinds:           getenvList("FLIGHTWATCH_NOTIFIER", []string{"discord"}),
			WebhookURL:      os.Getenv("FLIGHTWATCH_WEBHOOK_URL"),
			WebhookPlain:    getenvBool("FLIGHTWATCH_WEBHOOK_PLAIN", false),
			AuditFile:       os.Getenv("FLIGHTWATCH_AUDIT_FILE"),
			AuditMaxSize:    int64(getenvInt("FLIGHTWATCH_AUDIT_MAX_SIZE", 0)),
			Pretty:          getenvBool("FLIGHTWATCH_OUTPUT_PRETTY", false),
			Workers:         getenvInt("FLIGHTWATCH_DELIVERY_WORKERS", 4),
			DeliveryTimeout: getenvDuration("FLIGHTWATCH_DELIVERY_TIMEOUT", 15*time.Second),
			Retention:       retention,
		},
		Discord: DiscordConfig{
			Token:     os.Getenv("DISCORD_BOT_TOKEN"),
			ChannelID: os.Getenv("DISCORD_CHANNEL_ID"),
		},
		Redis: RedisConfig{
			URL:    os.Getenv("REDIS_URL"),
			Prefix: getenv("FLIGHTWATCH_REDIS_PREFIX", "flightwatch:reported:"),
		},
		HTTP: HTTPConfig{
			Addr: os.Getenv("FLIGHTWATCH_HTTP_ADDR"),
		},
		OTel: OTelConfig{
			Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:        os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
			ServiceName:    getenv("OTEL_SERVICE_NAME", "flightwatch"),
			ServiceVersion: getenv("OTEL_SERVICE_VERSION", "dev"),
		},
		Log: LogConfig{
			Format: getenv("FLIGHTWATCH_LOG_FORMAT", "text"),
			Level:  getenv("FLIGHTWATCH_LOG_LEVEL", "info"),
		},
	}

	if cfg.Connector.Extra == nil {
		cfg.Connector.Extra = make(map[string]string)
	}
	if _, ok := cfg.Connector.Extra["timeout"]; !ok {
		cfg.Connector.Extra["timeout"] = fetchTimeout.String()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c Config) Validate() error {
	var errs []error

	if len(c.Engine.Airports) == 0 {
		errs = append(errs, errors.New("FLIGHTWATCH_AIRPORTS must list at least one airport"))
	}
	if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
		errs = append(errs, fmt.Errorf("FLIGHTWATCH_SCHEDULE %q: %w", c.Schedule.Spec, err))
	}
	if len(c.Notifier.Kinds) == 0 {
		errs = append(errs, errors.New("FLIGHTWATCH_NOTIFIER must name at least one notifier"))
	}
	for _, kind := range c.Notifier.Kinds {
		switch kind {
		case "discord":
			if c.Discord.Token == "" || c.Discord.ChannelID == "" {
				errs = append(errs, errors.New("discord notifier requires DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID"))
			}
		case "webhook":
			if c.Notifier.WebhookURL == "" {
				errs = append(errs, errors.New("webhook notifier requires FLIGHTWATCH_WEBHOOK_URL"))
			}
		case "stdout":
		default:
			errs = append(errs, fmt.Errorf("unknown notifier %q", kind))
		}
	}
	if c.Discord.Enabled() && c.Discord.ChannelID == "" {
		errs = append(errs, errors.New("DISCORD_BOT_TOKEN is set but DISCORD_CHANNEL_ID is missing"))
	}
	if c.Connector.Provider == "file" && c.Connector.Extra["path"] == "" {
		errs = append(errs, errors.New("file connector requires FLIGHTWATCH_SNAPSHOT_FILE"))
	}
	if c.Connector.FetchTimeout <= 0 {
		errs = append(errs, errors.New("FLIGHTWATCH_FETCH_TIMEOUT must be positive"))
	}
	if c.Notifier.Workers <= 0 {
		errs = append(errs, errors.New("FLIGHTWATCH_DELIVERY_WORKERS must be positive"))
	}
	if c.Engine.DedupWindow <= 0 {
		errs = append(errs, errors.New("FLIGHTWATCH_DEDUP_WINDOW must be positive"))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("FLIGHTWATCH_LOG_FORMAT %q: want json or text", c.Log.Format))
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConnectorExtra reads provider-specific env vars into an Extra map.
func loadConnectorExtra() map[string]string {
	vars := []struct {
		envVar   string
		extraKey string
	}{
		{"FLIGHTWATCH_SNAPSHOT_FILE", "path"},
		{"FLIGHTWATCH_FETCH_TIMEOUT", "timeout"},
	}

	var m map[string]string
	for _, v := range vars {
		if val := os.Getenv(v.envVar); val != "" {
			if m == nil {
				m = make(map[string]string)
			}
			m[v.extraKey] = val
		}
	}
	return m
}

// getenvList splits a comma-separated value, trimming blanks. Codes are
// upper-cased only by consumers that need it.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
