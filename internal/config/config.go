package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    Server    `envPrefix:"SERVER_"`
	Database  Database  `envPrefix:"DATABASE_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	Log       Log       `envPrefix:"LOG_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	Storage   Storage   `envPrefix:"STORAGE_"`
	Captcha   Captcha   `envPrefix:"CAPTCHA_"`
	Email     Email     `envPrefix:"EMAIL_"`
	Shopify   Shopify   `envPrefix:"SHOPIFY_"`
	AI        AI        `envPrefix:"AI_"`
	SEO       SEO       `envPrefix:"SEO_"`
	Telemetry Telemetry `envPrefix:"OTEL_"`
	I18n      I18n      `envPrefix:"I18N_"`
}

type Server struct {
	Env            string        `env:"ENV" envDefault:"development"`
	HTTPPort       string        `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort       string        `env:"GRPC_PORT" envDefault:"50051"`
	SiteURL        string        `env:"SITE_URL" envDefault:"http://localhost:3000"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

type Database struct {
	URL      string `env:"URL,required"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
	Migrate  bool   `env:"MIGRATE" envDefault:"true"`
}

type Auth struct {
	JWTSecret      string        `env:"JWT_SECRET,required"`
	AccessTTL      time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL     time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
	CookieDomain   string        `env:"COOKIE_DOMAIN"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"console"`
}

// Redis is optional; an empty URL selects the in-memory cache.
type Redis struct {
	URL string `env:"URL"`
}

type Storage struct {
	Endpoint      string        `env:"ENDPOINT"`
	Region        string        `env:"REGION" envDefault:"us-east-1"`
	Bucket        string        `env:"BUCKET" envDefault:"media"`
	AccessKey     string        `env:"ACCESS_KEY"`
	SecretKey     string        `env:"SECRET_KEY"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL"`
	UsePathStyle  bool          `env:"USE_PATH_STYLE" envDefault:"true"`
	PresignTTL    time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
}

type Captcha struct {
	Secret    string `env:"SECRET"`
	VerifyURL string `env:"VERIFY_URL" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
}

type Email struct {
	APIKey            string `env:"API_KEY"`
	BaseURL           string `env:"BASE_URL" envDefault:"https://api.brevo.com"`
	SenderEmail       string `env:"SENDER_EMAIL" envDefault:"hello@example.com"`
	SenderName        string `env:"SENDER_NAME" envDefault:"Leasing"`
	BookingTemplateID int64  `env:"BOOKING_TEMPLATE_ID" envDefault:"1"`
	ContactTemplateID int64  `env:"CONTACT_TEMPLATE_ID" envDefault:"2"`
	ContactRecipient  string `env:"CONTACT_RECIPIENT" envDefault:"sales@example.com"`
}

type Shopify struct {
	ClientID    string   `env:"CLIENT_ID"`
	Secret      string   `env:"CLIENT_SECRET"`
	Scopes      []string `env:"SCOPES" envSeparator:"," envDefault:"read_products"`
	RedirectURL string   `env:"REDIRECT_URL" envDefault:"http://localhost:8080/api/auth/shopify/callback"`
	APIVersion  string   `env:"API_VERSION" envDefault:"2024-10"`
}

type AI struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"gemini-2.0-flash"`
}

type SEO struct {
	IndexNowKey      string `env:"INDEXNOW_KEY"`
	IndexNowEndpoint string `env:"INDEXNOW_ENDPOINT" envDefault:"https://api.indexnow.org/indexnow"`
}

type Telemetry struct {
	Endpoint    string  `env:"ENDPOINT"`
	ServiceName string  `env:"SERVICE_NAME" envDefault:"leasing-site-api"`
	SampleRatio float64 `env:"SAMPLE_RATIO" envDefault:"1"`
}

type I18n struct {
	Locales       []string `env:"LOCALES" envSeparator:"," envDefault:"en,de,fr"`
	DefaultLocale string   `env:"DEFAULT_LOCALE" envDefault:"en"`
}

// Load reads .env when present and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("AUTH_JWT_SECRET must be at least 16 characters")
	}
	found := false
	for _, l := range c.I18n.Locales {
		if l == c.I18n.DefaultLocale {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("default locale %q not in I18N_LOCALES", c.I18n.DefaultLocale)
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Server.Env == "production" }
