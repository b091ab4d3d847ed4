package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath        string
	ServerPort    string
	MetricsPort   string
	LogLevel      string
	TwitchUser    string
	TwitchToken   string
	SaltyEmail    string
	SaltyPassword string
	SaltyBoyURL   string
	WebhookURL    string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "saltboy.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		MetricsPort:   getEnv("METRICS_PORT", "9091"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		TwitchUser:    getEnv("TWITCH_USERNAME", ""),
		TwitchToken:   getEnv("TWITCH_OAUTH_TOKEN", ""),
		SaltyEmail:    getEnv("SALTY_EMAIL", ""),
		SaltyPassword: getEnv("SALTY_PASSWORD", ""),
		SaltyBoyURL:   getEnv("SALTY_BOY_URL", "https://www.salty-boy.com"),
		WebhookURL:    getEnv("DISCORD_WEBHOOK_URL", ""),
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH must not be empty")
	}
	if cfg.TwitchUser == "" || cfg.TwitchToken == "" {
		logger.Warn().Msg("TWITCH_USERNAME / TWITCH_OAUTH_TOKEN not set, chat listener will refuse to start")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("betting_enabled", cfg.SaltyEmail != "" && cfg.SaltyPassword != "").
		Bool("webhook_configured", cfg.WebhookURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
