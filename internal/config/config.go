package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	BotToken      string `env:"BOT_TOKEN,required"`
	WebhookHost   string `env:"WEBHOOK_HOST"`
	WebhookSecret string `env:"WEBHOOK_SECRET" envDefault:"secret"`
	Port          string `env:"PORT" envDefault:"8080"`
	MetricsAddr   string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	DBHost     string `env:"DB_HOST,required"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBName     string `env:"DB_NAME,required"`

	EnableTelemetry  bool          `env:"ENABLE_TELEMETRY" envDefault:"true"`
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"30s"`

	QueueBufferSize  int           `env:"QUEUE_BUFFER_SIZE" envDefault:"1024"`
	QueueConcurrency int           `env:"QUEUE_CONCURRENCY" envDefault:"8"`
	QueueIntervalCap int           `env:"QUEUE_INTERVAL_CAP" envDefault:"30"`
	QueueInterval    time.Duration `env:"QUEUE_INTERVAL" envDefault:"1s"`
	QueueWarnSize    int           `env:"QUEUE_WARN_SIZE" envDefault:"512"`

	ThrottleBaseDelay     time.Duration `env:"THROTTLE_BASE_DELAY" envDefault:"200ms"`
	ThrottleMaxDelay      time.Duration `env:"THROTTLE_MAX_DELAY" envDefault:"1m"`
	ThrottleDecayInterval time.Duration `env:"THROTTLE_DECAY_INTERVAL" envDefault:"30s"`

	DuplicateMinLength int           `env:"DUPLICATE_MIN_LENGTH" envDefault:"4"`
	InviteResetPeriod  time.Duration `env:"INVITE_RESET_PERIOD" envDefault:"720h"`

	VoteMuteRequired int           `env:"VOTE_MUTE_REQUIRED" envDefault:"5"`
	VoteMuteWindow   time.Duration `env:"VOTE_MUTE_WINDOW" envDefault:"10m"`
	VoteMuteDuration time.Duration `env:"VOTE_MUTE_DURATION" envDefault:"1h"`
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
