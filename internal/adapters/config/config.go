package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Database    DatabaseConfig    `envconfig:"DATABASE"`
	Redis       RedisConfig       `envconfig:"REDIS"`
	ClickHouse  ClickHouseConfig  `envconfig:"CLICKHOUSE"`
	Telegram    TelegramConfig    `envconfig:"TELEGRAM"`
	Scoring     ScoringConfig     `envconfig:"SCORING"`
	Workers     WorkersConfig     `envconfig:"WORKERS"`
	Health      HealthConfig      `envconfig:"HEALTH"`
	Logging     LoggingConfig     `envconfig:"LOGGING"`
}

// DatabaseConfig represents PostgreSQL connection parameters
type DatabaseConfig struct {
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           int    `envconfig:"DB_PORT" default:"5432"`
	Name           string `envconfig:"DB_NAME" default:"newspulse"`
	User           string `envconfig:"DB_USER" required:"true"`
	Password       string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_PATH" default:"migrations"`
}

// RedisConfig represents Redis connection parameters (maintenance lock)
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// ClickHouseConfig represents the optional metrics sink
type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database string `envconfig:"CLICKHOUSE_DATABASE" default:"newspulse"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD" required:"false"`
}

// TelegramConfig represents the optional ops notifier
type TelegramConfig struct {
	BotToken      string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID        int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertOnAudit  bool   `envconfig:"TELEGRAM_ALERT_ON_AUDIT" default:"true"`
	AlertOnErrors bool   `envconfig:"TELEGRAM_ALERT_ON_ERRORS" default:"true"`
}

// ScoringConfig holds the signal scoring parameters. These are explicit
// configuration rather than package constants so tests can exercise
// boundary values.
type ScoringConfig struct {
	VelocityWeight    float64 `envconfig:"SCORING_VELOCITY_WEIGHT" default:"0.35"`
	VolumeWeight      float64 `envconfig:"SCORING_VOLUME_WEIGHT" default:"0.25"`
	DiversityWeight   float64 `envconfig:"SCORING_DIVERSITY_WEIGHT" default:"0.25"`
	SentimentWeight   float64 `envconfig:"SCORING_SENTIMENT_WEIGHT" default:"0.15"`
	SourceCountClamp  int     `envconfig:"SCORING_SOURCE_COUNT_CLAMP" default:"5"`
	EmergingThreshold float64 `envconfig:"SCORING_EMERGING_THRESHOLD" default:"0.5"`
	Parallelism       int     `envconfig:"SCORING_PARALLELISM" default:"8"`
}

// WorkersConfig holds background worker intervals
type WorkersConfig struct {
	ScoringInterval time.Duration `envconfig:"WORKERS_SCORING_INTERVAL" default:"15m"`
	AuditInterval   time.Duration `envconfig:"WORKERS_AUDIT_INTERVAL" default:"6h"`
	StopTimeout     time.Duration `envconfig:"WORKERS_STOP_TIMEOUT" default:"30s"`
}

// HealthConfig holds the health check server parameters
type HealthConfig struct {
	Port string `envconfig:"HEALTH_PORT" default:"8080"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	s := &c.Scoring
	for name, w := range map[string]float64{
		"velocity":  s.VelocityWeight,
		"volume":    s.VolumeWeight,
		"diversity": s.DiversityWeight,
		"sentiment": s.SentimentWeight,
	} {
		if w < 0 {
			return fmt.Errorf("scoring %s weight must be non-negative", name)
		}
	}

	if s.SourceCountClamp < 1 {
		return fmt.Errorf("source count clamp must be at least 1")
	}

	if s.EmergingThreshold < 0 {
		return fmt.Errorf("emerging threshold must be non-negative")
	}

	if s.Parallelism < 1 {
		return fmt.Errorf("scoring parallelism must be at least 1")
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat id is required when bot token is set")
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetDSN returns ClickHouse connection string
func (c *ClickHouseConfig) GetDSN() string {
	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}
