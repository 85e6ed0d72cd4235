// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	insecureSecretPlaceholder = "change_me_in_production"
	minSecretKeyLength        = 16
	maxRoomCount              = 100
)

type Config struct {
	Port                string        `env:"PORT" envDefault:"8080"`
	TimeZone            string        `env:"TZ" envDefault:"UTC"`
	SecretKey           string        `env:"SECRET_KEY,required"`
	AllowInsecureSecret bool          `env:"ALLOW_INSECURE_SECRET" envDefault:"false"`
	CookieSecure        bool          `env:"COOKIE_SECURE" envDefault:"false"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	Database DatabaseConfig
	Booking  BookingConfig
	Auth     AuthConfig
	Mail     MailConfig
	Log      LogConfig

	location  *time.Location
	envSource string
}

type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	Path   string `env:"DB_PATH" envDefault:"data/roomdesk.db"`
	URL    string `env:"DATABASE_URL"`
}

type BookingConfig struct {
	RoomCount int           `env:"ROOM_COUNT" envDefault:"10"`
	LeadTime  time.Duration `env:"RESERVATION_LEAD_TIME" envDefault:"1m"`
}

type AuthConfig struct {
	TokenTTL      time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"10m"`
	ResetMode     string        `env:"PASSWORD_RESET_MODE" envDefault:"recovery_code"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

type MailConfig struct {
	Transport    string `env:"MAIL_TRANSPORT" envDefault:"log"`
	AMQPURL      string `env:"AMQP_URL"`
	Queue        string `env:"MAIL_QUEUE" envDefault:"roomdesk.password_reset"`
	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads .env from the working directory when present, then the process
// environment, and validates the result.
func Load() (*Config, error) {
	source := ""
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
		source = ".env"
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.envSource = source
	return cfg, nil
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes fields and reports every invalid variable at once.
func (cfg *Config) Validate() error {
	problems := make([]error, 0)

	port, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Errorf("PORT must be between 1 and 65535, got %q", cfg.Port))
	}

	location, err := time.LoadLocation(strings.TrimSpace(cfg.TimeZone))
	if err != nil {
		problems = append(problems, fmt.Errorf("TZ is not a known time zone: %q", cfg.TimeZone))
	} else {
		cfg.location = location
	}

	secret := strings.TrimSpace(cfg.SecretKey)
	if !cfg.AllowInsecureSecret && (secret == insecureSecretPlaceholder || len(secret) < minSecretKeyLength) {
		problems = append(problems, fmt.Errorf("SECRET_KEY must be at least %d characters and not the placeholder", minSecretKeyLength))
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.Database.URL) == "" {
			problems = append(problems, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		problems = append(problems, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.Database.Driver))
	}

	if cfg.Booking.RoomCount < 1 || cfg.Booking.RoomCount > maxRoomCount {
		problems = append(problems, fmt.Errorf("ROOM_COUNT must be between 1 and %d, got %d", maxRoomCount, cfg.Booking.RoomCount))
	}
	if cfg.Booking.LeadTime < 0 {
		problems = append(problems, fmt.Errorf("RESERVATION_LEAD_TIME must not be negative, got %s", cfg.Booking.LeadTime))
	}
	if cfg.RequestTimeout <= 0 {
		problems = append(problems, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout))
	}
	if cfg.Auth.TokenTTL <= 0 {
		problems = append(problems, fmt.Errorf("AUTH_TOKEN_TTL must be positive, got %s", cfg.Auth.TokenTTL))
	}

	cfg.Auth.ResetMode = strings.ToLower(strings.TrimSpace(cfg.Auth.ResetMode))
	switch cfg.Auth.ResetMode {
	case "recovery_code", "email":
	default:
		problems = append(problems, fmt.Errorf("PASSWORD_RESET_MODE must be recovery_code or email, got %q", cfg.Auth.ResetMode))
	}

	cfg.Mail.Transport = strings.ToLower(strings.TrimSpace(cfg.Mail.Transport))
	switch cfg.Mail.Transport {
	case "log":
	case "amqp":
		if strings.TrimSpace(cfg.Mail.AMQPURL) == "" {
			problems = append(problems, errors.New("AMQP_URL is required when MAIL_TRANSPORT=amqp"))
		}
	default:
		problems = append(problems, fmt.Errorf("MAIL_TRANSPORT must be log or amqp, got %q", cfg.Mail.Transport))
	}

	return errors.Join(problems...)
}

// Location is the zone reservation dates and times are interpreted in.
func (cfg *Config) Location() *time.Location {
	if cfg.location == nil {
		return time.UTC
	}
	return cfg.location
}

// EnvSource names the .env file that was loaded, if any.
func (cfg *Config) EnvSource() string {
	return cfg.envSource
}

// SMTPReady reports whether the mail worker has enough settings to deliver.
func (cfg MailConfig) SMTPReady() error {
	problems := make([]error, 0)
	if strings.TrimSpace(cfg.AMQPURL) == "" {
		problems = append(problems, errors.New("AMQP_URL is required for the mail worker"))
	}
	if strings.TrimSpace(cfg.SMTPAddr) == "" {
		problems = append(problems, errors.New("SMTP_ADDR is required for the mail worker"))
	}
	if strings.TrimSpace(cfg.SMTPFrom) == "" {
		problems = append(problems, errors.New("SMTP_FROM is required for the mail worker"))
	}
	return errors.Join(problems...)
}
