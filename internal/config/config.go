package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN          string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL          string `env:"RABBITMQ_URL,required=true"`
	RedisURL             string `env:"REDIS_URL,required=true"`
	FCMCredentialsFile   string `env:"FCM_CREDENTIALS_FILE"`
	PushRateLimitPerSec  int    `env:"PUSH_RATE_LIMIT_PER_SEC,default=100"`
	ReconnectMaxAttempts int    `env:"RECONNECT_MAX_ATTEMPTS,default=5"`
	ReconnectDelayMS     int    `env:"RECONNECT_DELAY_MS,default=2000"`
	APIPort              int    `env:"API_PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
}

// PushEnabled reports whether a push provider credential is configured.
// Without one the service runs with push disabled and every dispatch
// degrades to a skipped outcome.
func (c *Config) PushEnabled() bool {
	return c != nil && c.FCMCredentialsFile != ""
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
