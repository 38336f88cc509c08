package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const DefaultSecret = "default-secret"

// DefaultLiveEndpoint is the realtime websocket endpoint of the speech
// interpreter.
const DefaultLiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

var (
	ErrDatabaseURLRequired = errors.New("database URL is required")
	ErrGenAIKeyRequired    = errors.New("generative AI API key is required")
)

type Config struct {
	Debug                  bool          `yaml:"debug"             envconfig:"DEBUG"`
	Host                   string        `yaml:"host"              envconfig:"HOST"`
	Port                   string        `yaml:"port"              envconfig:"PORT"`
	Secret                 string        `yaml:"secret"            envconfig:"SECRET"`
	DatabaseURL            string        `yaml:"database_url"      envconfig:"DATABASE_URL"`
	MigrationSource        string        `yaml:"migration_source"  envconfig:"MIGRATION_SOURCE"`
	OtelCollectorUrl       string        `yaml:"otel_collector_url" envconfig:"OTEL_COLLECTOR_URL"`
	GenAIKey               string        `yaml:"genai_key"         envconfig:"GENAI_API_KEY"`
	LiveEndpoint           string        `yaml:"live_endpoint"     envconfig:"LIVE_ENDPOINT"`
	AllowOrigins           []string      `yaml:"allow_origins"     envconfig:"ALLOW_ORIGINS"`
	AccessTokenExpiration  time.Duration `yaml:"access_token_expiration"  envconfig:"ACCESS_TOKEN_EXPIRATION"`
	RefreshTokenExpiration time.Duration `yaml:"refresh_token_expiration" envconfig:"REFRESH_TOKEN_EXPIRATION"`
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}
	if c.GenAIKey == "" {
		return ErrGenAIKeyRequired
	}
	return nil
}

// Log buffers configuration messages produced before the logger exists and
// replays them once zap is up.
type Log struct {
	entries []logEntry
}

type logEntry struct {
	level   string
	message string
	fields  []zap.Field
}

func (l *Log) info(message string, fields ...zap.Field) {
	l.entries = append(l.entries, logEntry{level: "info", message: message, fields: fields})
}

func (l *Log) warn(message string, fields ...zap.Field) {
	l.entries = append(l.entries, logEntry{level: "warn", message: message, fields: fields})
}

func (l *Log) FlushToZap(logger *zap.Logger) {
	for _, e := range l.entries {
		switch e.level {
		case "warn":
			logger.Warn(e.message, e.fields...)
		default:
			logger.Info(e.message, e.fields...)
		}
	}
	l.entries = nil
}

func defaultConfig() Config {
	return Config{
		Host:                   "localhost",
		Port:                   "8080",
		Secret:                 DefaultSecret,
		MigrationSource:        "file://internal/database/migrations",
		LiveEndpoint:           DefaultLiveEndpoint,
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
	}
}

// Load builds the configuration in ascending precedence: defaults, a YAML
// config file, the .env file, process environment, then command-line flags.
func Load() (Config, *Log) {
	cfgLog := &Log{}
	cfg := defaultConfig()

	cfg = loadYamlFile(cfg, cfgLog)
	cfg = loadEnv(cfg, cfgLog)
	cfg = loadFlags(cfg)

	return cfg, cfgLog
}

func loadYamlFile(cfg Config, cfgLog *Log) Config {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			cfgLog.warn("Failed to read config file", zap.String("path", path), zap.Error(err))
		}
		return cfg
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		cfgLog.warn("Failed to parse config file, ignoring it", zap.String("path", path), zap.Error(err))
		return cfg
	}

	cfgLog.info("Loaded config file", zap.String("path", path))
	return cfg
}

func loadEnv(cfg Config, cfgLog *Log) Config {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			cfgLog.warn("Failed to load .env file", zap.Error(err))
		}
	} else {
		cfgLog.info("Loaded .env file")
	}

	setString := func(dst *string, key string) {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*dst = value
		}
	}

	setString(&cfg.Host, "HOST")
	setString(&cfg.Port, "PORT")
	setString(&cfg.Secret, "SECRET")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.MigrationSource, "MIGRATION_SOURCE")
	setString(&cfg.OtelCollectorUrl, "OTEL_COLLECTOR_URL")
	setString(&cfg.GenAIKey, "GENAI_API_KEY")
	setString(&cfg.LiveEndpoint, "LIVE_ENDPOINT")

	if value, ok := os.LookupEnv("DEBUG"); ok {
		cfg.Debug = value == "true" || value == "1"
	}

	if value, ok := os.LookupEnv("ALLOW_ORIGINS"); ok && value != "" {
		cfg.AllowOrigins = strings.Split(value, ",")
	}

	setDuration := func(dst *time.Duration, key string) {
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			return
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			cfgLog.warn(fmt.Sprintf("Invalid duration in %s, keeping previous value", key), zap.String("value", value))
			return
		}
		*dst = parsed
	}

	setDuration(&cfg.AccessTokenExpiration, "ACCESS_TOKEN_EXPIRATION")
	setDuration(&cfg.RefreshTokenExpiration, "REFRESH_TOKEN_EXPIRATION")

	return cfg
}

func loadFlags(cfg Config) Config {
	if flag.Parsed() {
		return cfg
	}

	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug mode")
	flag.StringVar(&cfg.Host, "host", cfg.Host, "server host")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "server port")
	flag.StringVar(&cfg.Secret, "secret", cfg.Secret, "JWT signing secret")
	flag.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "database connection string")
	flag.StringVar(&cfg.MigrationSource, "migration-source", cfg.MigrationSource, "database migration source")
	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", cfg.OtelCollectorUrl, "OpenTelemetry collector URL")
	flag.StringVar(&cfg.GenAIKey, "genai-key", cfg.GenAIKey, "generative AI API key")
	flag.StringVar(&cfg.LiveEndpoint, "live-endpoint", cfg.LiveEndpoint, "realtime voice websocket endpoint")
	flag.Parse()

	return cfg
}
