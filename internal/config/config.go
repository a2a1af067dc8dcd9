package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings of the chat hub.
type Config struct {
	Port           string
	ServiceName    string
	Environment    string
	AllowedOrigins []string
	MaxMessageSize int64
	SendBuffer     int

	HistoryCap    int
	HistoryReplay int
	ReplayPace    time.Duration

	TypingTimeout       time.Duration
	TypingSweepInterval time.Duration
	OfflineGrace        time.Duration
	PurgeInterval       time.Duration
	StatusInterval      time.Duration

	AMQPURL      string
	AMQPExchange string
	DBDSN        string
	OTLPEndpoint string
	DebugRoutes  bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                "8083",
		ServiceName:         "chat-hub",
		Environment:         "dev",
		AllowedOrigins:      []string{"*"},
		MaxMessageSize:      64 * 1024,
		SendBuffer:          256,
		HistoryCap:          1000,
		HistoryReplay:       50,
		ReplayPace:          20 * time.Millisecond,
		TypingTimeout:       30 * time.Second,
		TypingSweepInterval: 10 * time.Second,
		OfflineGrace:        time.Hour,
		PurgeInterval:       10 * time.Minute,
		StatusInterval:      5 * time.Minute,
		AMQPExchange:        "chat.events",
	}
}

// Load reads a .env file if present and overlays the environment onto Default.
func Load() Config {
	if err := LoadDotEnv(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}
	return FromEnv(os.LookupEnv)
}

// LoadDotEnv copies variables from files (default .env) into the process
// environment without overriding ones already set.
func LoadDotEnv(files ...string) error {
	return godotenv.Load(files...)
}

// FromEnv builds a Config from lookup, falling back to defaults for unset or
// invalid values.
func FromEnv(lookup func(string) (string, bool)) Config {
	cfg := Default()
	env := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := env("PORT"); ok {
		cfg.Port = strings.TrimPrefix(v, ":")
	}
	if v, ok := env("SERVICE_NAME"); ok {
		cfg.ServiceName = v
	}
	if v, ok := env("ENVIRONMENT"); ok {
		cfg.Environment = v
	}
	if v, ok := env("ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = ParseOrigins(v)
	}
	if v, ok := env("MAX_MESSAGE_SIZE"); ok {
		cfg.MaxMessageSize = int64(parseInt("MAX_MESSAGE_SIZE", v, int(cfg.MaxMessageSize)))
	}
	if v, ok := env("SEND_BUFFER"); ok {
		cfg.SendBuffer = parseInt("SEND_BUFFER", v, cfg.SendBuffer)
	}
	if v, ok := env("HISTORY_CAP"); ok {
		cfg.HistoryCap = parseInt("HISTORY_CAP", v, cfg.HistoryCap)
	}
	if v, ok := env("HISTORY_REPLAY"); ok {
		cfg.HistoryReplay = parseInt("HISTORY_REPLAY", v, cfg.HistoryReplay)
	}
	if v, ok := env("REPLAY_PACE"); ok {
		cfg.ReplayPace = parseDuration("REPLAY_PACE", v, cfg.ReplayPace, true)
	}
	if v, ok := env("TYPING_TIMEOUT"); ok {
		cfg.TypingTimeout = parseDuration("TYPING_TIMEOUT", v, cfg.TypingTimeout, false)
	}
	if v, ok := env("TYPING_SWEEP_INTERVAL"); ok {
		cfg.TypingSweepInterval = parseDuration("TYPING_SWEEP_INTERVAL", v, cfg.TypingSweepInterval, false)
	}
	if v, ok := env("OFFLINE_GRACE"); ok {
		cfg.OfflineGrace = parseDuration("OFFLINE_GRACE", v, cfg.OfflineGrace, false)
	}
	if v, ok := env("PURGE_INTERVAL"); ok {
		cfg.PurgeInterval = parseDuration("PURGE_INTERVAL", v, cfg.PurgeInterval, false)
	}
	if v, ok := env("STATUS_INTERVAL"); ok {
		cfg.StatusInterval = parseDuration("STATUS_INTERVAL", v, cfg.StatusInterval, false)
	}
	if v, ok := env("AMQP_URL"); ok {
		cfg.AMQPURL = v
	}
	if v, ok := env("AMQP_EXCHANGE"); ok {
		cfg.AMQPExchange = v
	}
	if v, ok := env("DB_DSN"); ok {
		cfg.DBDSN = v
	}
	if v, ok := env("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		cfg.OTLPEndpoint = v
	}
	if v, ok := env("DEBUG_ROUTES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid config value, using default", "key", "DEBUG_ROUTES", "value", v)
		} else {
			cfg.DebugRoutes = b
		}
	}

	return cfg.Sanitize()
}

// Sanitize replaces non-positive sizes and intervals with their defaults.
func (c Config) Sanitize() Config {
	def := Default()
	if c.Port == "" {
		c.Port = def.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = def.HistoryCap
	}
	if c.HistoryReplay <= 0 {
		c.HistoryReplay = def.HistoryReplay
	}
	if c.HistoryReplay > c.HistoryCap {
		c.HistoryReplay = c.HistoryCap
	}
	if c.ReplayPace < 0 {
		c.ReplayPace = 0
	}
	if c.TypingTimeout <= 0 {
		c.TypingTimeout = def.TypingTimeout
	}
	if c.TypingSweepInterval <= 0 {
		c.TypingSweepInterval = def.TypingSweepInterval
	}
	if c.OfflineGrace <= 0 {
		c.OfflineGrace = def.OfflineGrace
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = def.PurgeInterval
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = def.StatusInterval
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = def.AllowedOrigins
	}
	if c.AMQPExchange == "" {
		c.AMQPExchange = def.AMQPExchange
	}
	return c
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// ParseOrigins splits a comma separated origin list.
func ParseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(strings.TrimSpace(p), "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(key, value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("invalid config value, using default", "key", key, "value", value)
		return fallback
	}
	return n
}

func parseDuration(key, value string, fallback time.Duration, allowZero bool) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		slog.Warn("invalid config value, using default", "key", key, "value", value)
		return fallback
	}
	return d
}
