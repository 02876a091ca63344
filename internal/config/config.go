// Package config loads application settings from the environment.
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings for the API server.
type Config struct {
	Port           string `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// StartingBalance is credited to every new account as a welcome bonus.
	StartingBalance int64 `envconfig:"STARTING_BALANCE" default:"100"`

	// SeedDemoData inserts sample users, skills and exchanges on startup.
	SeedDemoData bool `envconfig:"SEED_DEMO_DATA" default:"false"`

	// ReminderSchedule is the cron expression for the session reminder job.
	ReminderSchedule string `envconfig:"REMINDER_SCHEDULE" default:"0 * * * *"`

	DBMaxOpenConns int `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
