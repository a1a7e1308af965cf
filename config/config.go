package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Log       LogConfig
	Auth      AuthConfig
	Pipedrive PipedriveConfig
	RDStation RDStationConfig
	CMS       CMSConfig
	// ConnectorTimeout bounds every outbound call to Pipedrive, RD Station and the CMS.
	ConnectorTimeout time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds fiber server settings
type HTTPConfig struct {
	BodyLimitBytes  int
	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, mysql, sqlite
	DSN             string // overrides the discrete fields when set
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	TablePrefix     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AuthConfig holds operator session settings
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	NonceTTL      time.Duration
	AdminEmail    string
	AdminPassword string
}

// PipedriveConfig holds the CRM account settings. Field keys are the
// account-specific custom field hashes.
type PipedriveConfig struct {
	BaseURL         string
	APIToken        string
	OwnerUserID     string
	OriginFieldKey  string
	OriginValue     string
	MessageFieldKey string
}

// RDStationConfig holds the marketing conversion endpoint settings
type RDStationConfig struct {
	Endpoint string
	Token    string
}

// CMSConfig points at the WordPress site that owns the properties
type CMSConfig struct {
	BaseURL  string
	PostType string
}

// Load reads .env (when present) and the environment.
// Priority (highest to lowest):
// 1. Environment variables
// 2. .env
// 3. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("APP_NAME"),
			Env:  strings.ToLower(v.GetString("ENVIRONMENT")),
			Port: v.GetString("PORT"),
		},
		HTTP: HTTPConfig{
			BodyLimitBytes:  v.GetInt("BODY_LIMIT_BYTES"),
			AllowedOrigins:  v.GetString("ALLOWED_ORIGINS"),
			RateLimitMax:    v.GetInt("RATE_LIMIT_MAX"),
			RateLimitWindow: time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSL_MODE"),
			TablePrefix:     v.GetString("DB_TABLE_PREFIX"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET_KEY"),
			TokenTTL:      v.GetDuration("JWT_TTL"),
			NonceTTL:      v.GetDuration("NONCE_TTL"),
			AdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
		},
		Pipedrive: PipedriveConfig{
			BaseURL:         v.GetString("PIPEDRIVE_API_URL"),
			APIToken:        v.GetString("PIPEDRIVE_API_TOKEN"),
			OwnerUserID:     v.GetString("PIPEDRIVE_OWNER_USER_ID"),
			OriginFieldKey:  v.GetString("PIPEDRIVE_ORIGIN_FIELD"),
			OriginValue:     v.GetString("PIPEDRIVE_ORIGIN_VALUE"),
			MessageFieldKey: v.GetString("PIPEDRIVE_MESSAGE_FIELD"),
		},
		RDStation: RDStationConfig{
			Endpoint: v.GetString("RDSTATION_API_URL"),
			Token:    v.GetString("RDSTATION_TOKEN"),
		},
		CMS: CMSConfig{
			BaseURL:  v.GetString("CMS_API_URL"),
			PostType: v.GetString("CMS_POST_TYPE"),
		},
		ConnectorTimeout: v.GetDuration("CONNECTOR_TIMEOUT"),
	}

	// Prefer JWT_SECRET_KEY, fallback to JWT_SECRET
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "leads-organizer")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "8080")

	v.SetDefault("BODY_LIMIT_BYTES", 1024*1024)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_MAX", 60)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_OUTPUT", "stdout")

	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("NONCE_TTL", 12*time.Hour)

	v.SetDefault("PIPEDRIVE_API_URL", "https://api.pipedrive.com/v1")
	v.SetDefault("PIPEDRIVE_ORIGIN_VALUE", "Site")
	v.SetDefault("RDSTATION_API_URL", "https://www.rdstation.com.br/api/1.3/conversions")
	v.SetDefault("CMS_POST_TYPE", "imovel")
	v.SetDefault("CONNECTOR_TIMEOUT", 15*time.Second)
}

// Validate reports the settings the service cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		problems = append(problems, "JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
		if c.Database.DSN == "" && c.Database.Name == "" {
			problems = append(problems, "DB_NAME or DB_DSN is required")
		}
	case "sqlite":
		if c.Database.DSN == "" && c.Database.Name == "" {
			problems = append(problems, "DB_NAME (sqlite file) or DB_DSN is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		problems = append(problems, "ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
