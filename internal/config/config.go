package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
	// PublicURL is used for links in emails when the request host is not available.
	PublicURL string `yaml:"public_url"`
	// CORSOrigins defaults to every origin.
	CORSOrigins []string `yaml:"cors_origins"`
	// TrustedProxies may set X-Forwarded-For. Empty trusts none.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type JWTConfig struct {
	Secret              string        `yaml:"secret"`
	ExpiresIn           time.Duration `yaml:"expires_in"`
	CookieExpiresInDays int           `yaml:"cookie_expires_in_days"`
}

type EmailConfig struct {
	// Driver is "smtp" or "resend". Empty picks resend in production, smtp otherwise.
	Driver       string `yaml:"driver"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	ResendAPIKey string `yaml:"resend_api_key"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

type QueryConfig struct {
	// MaxLimit caps the limit query parameter. 0 leaves it uncapped.
	MaxLimit int `yaml:"max_limit"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type StorageConfig struct {
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3BaseEndpoint string `yaml:"s3_base_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	// PublicBaseURL prefixes object keys in stored image URLs.
	PublicBaseURL string `yaml:"public_base_url"`
}

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Email     EmailConfig     `yaml:"email"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Query     QueryConfig     `yaml:"query"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	Views     struct {
		TemplatesGlob string `yaml:"templates_glob"`
		StaticDir     string `yaml:"static_dir"`
	} `yaml:"views"`
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// LoadConfig reads the YAML file at path (config/config.yaml when empty),
// overlays environment variables and fills defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.yaml"
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Env, "NODE_ENV")
	setString(&c.Server.Env, "APP_ENV")
	setString(&c.Server.PublicURL, "PUBLIC_URL")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.Email.ResendAPIKey, "RESEND_API_KEY")
	setString(&c.Email.SMTPPassword, "EMAIL_PASSWORD")
	setString(&c.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&c.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Storage.S3AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3SecretKey, "S3_SECRET_KEY")

	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.Server.TrustedProxies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Server.TrustedProxies = append(c.Server.TrustedProxies, p)
			}
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
		}
		c.JWT.ExpiresIn = d
	}
	if v := os.Getenv("JWT_COOKIE_EXPIRES_IN"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_COOKIE_EXPIRES_IN: %w", err)
		}
		c.JWT.CookieExpiresInDays = days
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Env == "" {
		c.Server.Env = EnvDevelopment
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.JWT.ExpiresIn == 0 {
		c.JWT.ExpiresIn = 90 * 24 * time.Hour
	}
	if c.JWT.CookieExpiresInDays == 0 {
		c.JWT.CookieExpiresInDays = 90
	}
	if c.Email.Driver == "" {
		if c.IsProduction() {
			c.Email.Driver = "resend"
		} else {
			c.Email.Driver = "smtp"
		}
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "Natours"
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}
	if c.RateLimit.Max == 0 {
		c.RateLimit.Max = 100
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Hour
	}
	if c.Views.TemplatesGlob == "" {
		c.Views.TemplatesGlob = "web/templates/*.html"
	}
	if c.Views.StaticDir == "" {
		c.Views.StaticDir = "web/static"
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (jwt.secret or JWT_SECRET)")
	}
	if c.Database.DSN == "" {
		return errors.New("database url is required (database.url or DATABASE_URL)")
	}
	if c.Query.MaxLimit < 0 {
		return errors.New("query.max_limit must not be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
