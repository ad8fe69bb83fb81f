package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL       string `env:"RABBITMQ_URL,required=true"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	ResultWebhookURL  string `env:"RESULT_WEBHOOK_URL"`
	SubmitRatePerSec  int    `env:"SUBMIT_RATE_PER_SEC,default=20"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=8"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
	LabTimezone       string `env:"LAB_TIMEZONE,default=America/Chicago"`
	SeedDemoData      bool   `env:"SEED_DEMO_DATA,default=false"`
	SeedSampleCount   int    `env:"SEED_SAMPLE_COUNT,default=40"`
	SeedFarmID        string `env:"SEED_FARM_ID"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
