package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	LogLevel         string
	DatabaseURL      string
	RedisAddr        string
	ScheduleCacheTTL time.Duration
	JWTSecret        string
	PendingHoldTTL   time.Duration
	ClinicTimezone   string
	CORSOrigins      string

	SMTPHost  string
	SMTPPort  int
	EmailUser string
	EmailPass string
}

// Load reads .env if present, then the process environment.
// Missing .env is not an error; the returned warning says so.
func Load() (*Config, []string, error) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "no .env file loaded, using environment variables directly")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		EmailUser:      os.Getenv("EMAIL_USER"),
		EmailPass:      os.Getenv("EMAIL_PASS"),
	}

	var err error
	if cfg.ScheduleCacheTTL, err = getDuration("SCHEDULE_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, warnings, err
	}
	if cfg.PendingHoldTTL, err = getDuration("PENDING_HOLD_TTL", 15*time.Minute); err != nil {
		return nil, warnings, err
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if cfg.SMTPPort, err = strconv.Atoi(port); err != nil {
			return nil, warnings, fmt.Errorf("SMTP_PORT: %w", err)
		}
	} else {
		cfg.SMTPPort = 587
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, warnings, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "solid_secret_key"
		warnings = append(warnings, "JWT_SECRET not set, using development secret")
	}
	if _, err := time.LoadLocation(cfg.ClinicTimezone); err != nil {
		return nil, warnings, fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}
	return cfg, warnings, nil
}

func (c *Config) IsDev() bool { return c.Env == "development" }

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) MailEnabled() bool { return c.SMTPHost != "" && c.EmailUser != "" }

// Location is the clinic timezone used for "today" in background jobs.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}
