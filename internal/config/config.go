package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`

	GatewayAPIKey  string `env:"GATEWAY_API_KEY"`
	GatewayBaseURL string `env:"GATEWAY_BASE_URL,default=https://wasenderapi.com"`
	CountryCode    string `env:"COUNTRY_CODE,default=964"`
	CompanyName    string `env:"COMPANY_NAME"`

	MessageDelayMillis  int `env:"MESSAGE_DELAY_MS,default=5000"`
	MessageJitterMillis int `env:"MESSAGE_JITTER_MS,default=2000"`
	BatchSize           int `env:"BATCH_SIZE,default=50"`
	BatchPauseMillis    int `env:"BATCH_PAUSE_MS,default=30000"`

	RateLimitWindowSec int    `env:"RATE_LIMIT_WINDOW_SEC,default=60"`
	RateLimitMax       int    `env:"RATE_LIMIT_MAX,default=30"`
	RateLimitDisabled  bool   `env:"RATE_LIMIT_DISABLED,default=false"`
	RateLimitBackend   string `env:"RATE_LIMIT_BACKEND,default=memory"`
	RedisURL           string `env:"REDIS_URL"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
