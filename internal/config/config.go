package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds environment-based settings
type Config struct {
	AppEnv         string `env:"APP_ENV"         envDefault:"development"`
	ServerAddress  string `env:"SERVER_ADDRESS"  envDefault:":8080"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE"    envDefault:"true"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"72h"`

	RedisAddress  string `env:"REDIS_ADDRESS"  envDefault:"localhost:6379"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// MQTTBrokerURL empty disables MQTT push.
	MQTTBrokerURL      string `env:"MQTT_BROKER_URL"`
	MQTTClientID       string `env:"MQTT_CLIENT_ID"      envDefault:"mesophy-api"`
	NotificationStream string `env:"NOTIFICATION_STREAM" envDefault:"device-notifications"`

	UseSpaces       bool   `env:"USE_SPACES" envDefault:"false"`
	SpacesEndpoint  string `env:"SPACES_ENDPOINT"`
	SpacesRegion    string `env:"SPACES_REGION"`
	SpacesBucket    string `env:"SPACES_BUCKET"`
	SpacesCDNURL    string `env:"SPACES_CDN_URL"`
	SpacesAccessKey string `env:"SPACES_ACCESS_KEY"`
	SpacesSecretKey string `env:"SPACES_SECRET_KEY"`
	UploadDir       string `env:"UPLOAD_DIR"    envDefault:"./uploads"`
	MaxUploadMB     int    `env:"MAX_UPLOAD_MB" envDefault:"100"`

	SiteURL     string   `env:"SITE_URL"     envDefault:"http://localhost:3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	CronSecret           string `env:"CRON_SECRET"`
	CalendarClientID     string `env:"CALENDAR_CLIENT_ID"`
	CalendarClientSecret string `env:"CALENDAR_CLIENT_SECRET"`
	CalendarTenant       string `env:"CALENDAR_TENANT"    envDefault:"common"`
	GraphBaseURL         string `env:"GRAPH_BASE_URL"     envDefault:"https://graph.microsoft.com/v1.0"`

	PollingConfigFile string `env:"POLLING_CONFIG_FILE"`

	DeviceRateLimit float64 `env:"DEVICE_RATE_LIMIT" envDefault:"5"`
	DeviceRateBurst int     `env:"DEVICE_RATE_BURST" envDefault:"20"`

	LogLevel      string `env:"LOG_LEVEL"        envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"  envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS"  envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
}

// fallbacks lists older variable names consulted, in order, when the primary
// name is unset.
var fallbacks = map[string][]string{
	"DATABASE_URL":           {"POSTGRES_URL", "SUPABASE_DB_URL"},
	"JWT_SECRET":             {"SECRET_KEY", "SUPABASE_JWT_SECRET"},
	"SITE_URL":               {"NEXT_PUBLIC_SITE_URL", "PUBLIC_SITE_URL", "VERCEL_URL"},
	"CALENDAR_CLIENT_ID":     {"MICROSOFT_CLIENT_ID", "AZURE_CLIENT_ID"},
	"CALENDAR_CLIENT_SECRET": {"MICROSOFT_CLIENT_SECRET", "AZURE_CLIENT_SECRET"},
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(environ())
}

// LoadFrom parses configuration from the given variables.
func LoadFrom(vars map[string]string) (*Config, error) {
	vars = applyFallbacks(vars)

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func environ() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}

func applyFallbacks(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	for primary, names := range fallbacks {
		if out[primary] != "" {
			continue
		}
		for _, name := range names {
			if v := out[name]; v != "" {
				if name == "VERCEL_URL" && !strings.Contains(v, "://") {
					v = "https://" + v
				}
				out[primary] = v
				break
			}
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.UseSpaces && (c.SpacesBucket == "" || c.SpacesEndpoint == "") {
		return fmt.Errorf("USE_SPACES requires SPACES_ENDPOINT and SPACES_BUCKET")
	}
	c.SiteURL = strings.TrimSuffix(c.SiteURL, "/")
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// CalendarConfigured reports whether token refresh can run.
func (c *Config) CalendarConfigured() bool {
	return c.CronSecret != "" && c.CalendarClientID != "" && c.CalendarClientSecret != ""
}
