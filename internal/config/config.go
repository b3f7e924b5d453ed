package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by Load. Field tags carry the full variable name.
const EnvPrefix = "CAMPUSRX"

// Config holds application configuration values.
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	Redis   RedisConfig
	SMTP    SMTPConfig
	Storage StorageConfig
	Links   LinkConfig
}

type AppConfig struct {
	Env           string `envconfig:"CAMPUSRX_APP_ENV" default:"dev"`
	Port          string `envconfig:"CAMPUSRX_HTTP_PORT" default:"8080"`
	LogLevel      string `envconfig:"CAMPUSRX_LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"CAMPUSRX_LOG_FORMAT" default:"json"`
	LogFile       string `envconfig:"CAMPUSRX_LOG_FILE"`
	PublicBaseURL string `envconfig:"CAMPUSRX_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	// CORSOrigins is a comma separated allow-list for browser clients.
	CORSOrigins []string `envconfig:"CAMPUSRX_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}

type DBConfig struct {
	Driver       string `envconfig:"CAMPUSRX_DB_DRIVER" default:"sqlite"`
	DSN          string `envconfig:"CAMPUSRX_DB_DSN" default:"campusrx.db"`
	MaxOpenConns int    `envconfig:"CAMPUSRX_DB_MAX_OPEN_CONNS" default:"10"`
}

type JWTConfig struct {
	Secret string        `envconfig:"CAMPUSRX_JWT_SECRET" default:"dev_secret"`
	Issuer string        `envconfig:"CAMPUSRX_JWT_ISSUER" default:"campusrx"`
	TTL    time.Duration `envconfig:"CAMPUSRX_JWT_TTL" default:"24h"`
}

type RedisConfig struct {
	// URL is optional; one-time login links fall back to process memory without it.
	URL string `envconfig:"CAMPUSRX_REDIS_URL"`
}

type SMTPConfig struct {
	Host     string `envconfig:"CAMPUSRX_SMTP_HOST"`
	Port     int    `envconfig:"CAMPUSRX_SMTP_PORT" default:"587"`
	Username string `envconfig:"CAMPUSRX_SMTP_USERNAME"`
	Password string `envconfig:"CAMPUSRX_SMTP_PASSWORD"`
	From     string `envconfig:"CAMPUSRX_SMTP_FROM" default:"no-reply@campusrx.local"`
}

type StorageConfig struct {
	Dir     string `envconfig:"CAMPUSRX_STORAGE_DIR" default:"uploads"`
	BaseURL string `envconfig:"CAMPUSRX_STORAGE_BASE_URL"`
}

type LinkConfig struct {
	TTL     time.Duration `envconfig:"CAMPUSRX_LOGIN_LINK_TTL" default:"15m"`
	BaseURL string        `envconfig:"CAMPUSRX_LOGIN_LINK_BASE_URL"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.App.Port); err != nil {
		return fmt.Errorf("invalid %s_HTTP_PORT value %q", EnvPrefix, c.App.Port)
	}
	switch c.DB.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported %s_DB_DRIVER %q (want sqlite or pgx)", EnvPrefix, c.DB.Driver)
	}
	if c.Storage.BaseURL == "" {
		c.Storage.BaseURL = strings.TrimRight(c.App.PublicBaseURL, "/") + "/files"
	}
	if c.Links.BaseURL == "" {
		c.Links.BaseURL = strings.TrimRight(c.App.PublicBaseURL, "/") + "/auth/link"
	}
	return nil
}
