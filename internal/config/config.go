// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration. Every field maps to one
// environment variable.
type Config struct {
	Env       string
	Port      string
	BasePath  string
	AppOrigin string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	JWTSecret           string
	JWTExpiresIn        string
	JWTRefreshSecret    string
	JWTRefreshExpiresIn string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailerSender string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// IsProduction reports whether the server runs with production hardening
// (strict cookies, TLS-only flags).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment with sensible development
// defaults. Secrets have no defaults; missing ones fail loading.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8000")
	v.SetDefault("BASE_PATH", "/api/v1")
	v.SetDefault("APP_ORIGIN", "http://localhost:3000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "squeezy")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("JWT_EXPIRES_IN", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRES_IN", "30d")
	v.SetDefault("SMTP_PORT", 587)

	cfg := &Config{
		Env:       v.GetString("ENV"),
		Port:      v.GetString("PORT"),
		BasePath:  v.GetString("BASE_PATH"),
		AppOrigin: v.GetString("APP_ORIGIN"),

		MongoURI: v.GetString("MONGO_URI"),
		MongoDB:  v.GetString("MONGO_DB"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),

		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTExpiresIn:        v.GetString("JWT_EXPIRES_IN"),
		JWTRefreshSecret:    v.GetString("JWT_REFRESH_SECRET"),
		JWTRefreshExpiresIn: v.GetString("JWT_REFRESH_EXPIRES_IN"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUsername: v.GetString("SMTP_USERNAME"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		MailerSender: v.GetString("MAILER_SENDER"),

		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  v.GetString("GOOGLE_CALLBACK_URL"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	return cfg, nil
}
