package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	Mongo      MongoConfig
	Postgres   PostgresConfig
	OpenAI     OpenAIConfig
	Discord    DiscordConfig
	Logging    LoggingConfig
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// PostgresConfig is optional: when DSN is empty the user store is disabled
// and conversations are created without an owner.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
}

type DiscordConfig struct {
	WebhookURL string
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		ServerAddr: envOrDefault("SERVER_ADDR", ":8000"),
		Mongo: MongoConfig{
			URI:            strings.TrimSpace(os.Getenv("MONGO_URI")),
			Database:       envOrDefault("MONGO_DATABASE", "numinia"),
			ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "10s"), 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:            strings.TrimSpace(os.Getenv("DATABASE_URL")),
			MaxConns:       parseInt32(envOrDefault("POSTGRES_MAX_CONNS", "8"), 8),
			MinConns:       parseInt32(envOrDefault("POSTGRES_MIN_CONNS", "1"), 1),
			ConnectTimeout: parseDuration(envOrDefault("POSTGRES_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:      strings.TrimRight(envOrDefault("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			DefaultModel: envOrDefault("OPENAI_DEFAULT_MODEL", "gpt-4o"),
			Timeout:      parseDuration(envOrDefault("OPENAI_HTTP_TIMEOUT", "120s"), 120*time.Second),
		},
		Discord: DiscordConfig{
			WebhookURL: strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
		},
		Logging: LoggingConfig{
			Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
			Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
			EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
			ServiceName:  envOrDefault("SERVICE_NAME", "numinia-conversations-api"),
		},
	}

	return cfg, cfg.validate()
}

func loadEnvFile() error {
	if err := godotenv.Load(); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			// no .env file: environment variables are supplied externally
			return nil
		}
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing required environment variable: MONGO_URI")
	}
	return nil
}

// HasUserStore reports whether wallet-to-user resolution is available.
func (c *Config) HasUserStore() bool {
	return c.Postgres.DSN != ""
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt32(value string, fallback int32) int32 {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return int32(i)
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}
