package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Geo       GeoConfig       `mapstructure:"geo"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
	// DocsPath is the OpenAPI document served under /docs.
	DocsPath string `mapstructure:"docs_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendValkey   = "valkey"
)

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	// ConnectTimeoutSeconds bounds the dial and the startup ping.
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout_seconds"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// NATSConfig; an empty URL disables events.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort     string `mapstructure:"host_port"`
	Namespace    string `mapstructure:"namespace"`
	TaskQueue    string `mapstructure:"task_queue"`
	CronSchedule string `mapstructure:"cron_schedule"`
}

type AdminConfig struct {
	Secret string `mapstructure:"secret"`
}

type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type ProvidersConfig struct {
	Order          []string    `mapstructure:"order"`
	TimeoutSeconds int         `mapstructure:"timeout_seconds"`
	Google         ProviderKey `mapstructure:"google"`
	OpenRoute      ProviderKey `mapstructure:"openroute"`
	RPS            float64     `mapstructure:"rps"`
	Burst          int         `mapstructure:"burst"`
}

type ProviderKey struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Window is a sliding window limit: Max requests per WindowSeconds.
type Window struct {
	Max           int `mapstructure:"max"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type LimitsConfig struct {
	Distance Window `mapstructure:"distance"`
	Batch    Window `mapstructure:"batch"`
	Admin    Window `mapstructure:"admin"`
	Refresh  Window `mapstructure:"refresh"`
	Hourly   int    `mapstructure:"hourly"`
	Daily    int    `mapstructure:"daily"`
	// JanitorSeconds is how often idle clients are forgotten.
	JanitorSeconds int `mapstructure:"janitor_seconds"`
}

type GeoConfig struct {
	BandThresholdKm float64 `mapstructure:"band_threshold_km"`
	BandStepKm      int     `mapstructure:"band_step_km"`
	LookupTolerance float64 `mapstructure:"lookup_tolerance"`
	OriginPrecision int     `mapstructure:"origin_precision"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.request_timeout", 25)
	v.SetDefault("server.docs_path", "api/openapi.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "footpath")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "footpath")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.connect_timeout_seconds", 5)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("nats.url", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "footpath-refresh")
	v.SetDefault("temporal.cron_schedule", "")
	v.SetDefault("directory.base_url", "")
	v.SetDefault("directory.token", "")
	v.SetDefault("providers.order", []string{"google", "openroute"})
	v.SetDefault("providers.timeout_seconds", 10)
	v.SetDefault("providers.google.base_url", "")
	v.SetDefault("providers.google.api_key", "")
	v.SetDefault("providers.openroute.base_url", "")
	v.SetDefault("providers.openroute.api_key", "")
	v.SetDefault("providers.rps", 0)
	v.SetDefault("providers.burst", 1)
	v.SetDefault("limits.distance.max", 20)
	v.SetDefault("limits.distance.window_seconds", 60)
	v.SetDefault("limits.batch.max", 5)
	v.SetDefault("limits.batch.window_seconds", 60)
	v.SetDefault("limits.admin.max", 10)
	v.SetDefault("limits.admin.window_seconds", 60)
	v.SetDefault("limits.refresh.max", 5)
	v.SetDefault("limits.refresh.window_seconds", 60)
	v.SetDefault("limits.hourly", 100)
	v.SetDefault("limits.daily", 500)
	v.SetDefault("limits.janitor_seconds", 60)
	v.SetDefault("geo.band_threshold_km", 10.0)
	v.SetDefault("geo.band_step_km", 10)
	v.SetDefault("geo.lookup_tolerance", 0.0001)
	v.SetDefault("geo.origin_precision", 4)
	v.SetDefault("batch.concurrency", 4)
	// Registered empty so FOOTPATH_ADMIN_SECRET reaches Unmarshal; Validate
	// rejects it if still empty.
	v.SetDefault("admin.secret", "")
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FOOTPATH_ADMIN_SECRET → admin.secret
	v.SetEnvPrefix("FOOTPATH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Admin.Secret == "" {
		errs = append(errs, "admin.secret is required")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			errs = append(errs, "storage.dir is required for the file backend")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	case BackendValkey:
		if c.Valkey.Addr == "" {
			errs = append(errs, "valkey.addr is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be file, postgres or valkey, got %q", c.Storage.Backend))
	}

	for _, name := range c.Providers.Order {
		switch name {
		case "google":
			if c.Providers.Google.APIKey == "" {
				errs = append(errs, "providers.google.api_key is required when google is in providers.order")
			}
		case "openroute":
		default:
			errs = append(errs, fmt.Sprintf("providers.order: unknown provider %q", name))
		}
	}
	if c.Providers.TimeoutSeconds <= 0 {
		errs = append(errs, "providers.timeout_seconds must be positive")
	}

	windows := []struct {
		name string
		w    Window
	}{
		{"distance", c.Limits.Distance},
		{"batch", c.Limits.Batch},
		{"admin", c.Limits.Admin},
		{"refresh", c.Limits.Refresh},
	}
	for _, l := range windows {
		if l.w.Max <= 0 || l.w.WindowSeconds <= 0 {
			errs = append(errs, fmt.Sprintf("limits.%s needs a positive max and window_seconds", l.name))
		}
	}

	if c.Geo.BandThresholdKm <= 0 {
		errs = append(errs, "geo.band_threshold_km must be positive")
	}
	if c.Geo.LookupTolerance <= 0 {
		errs = append(errs, "geo.lookup_tolerance must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		errs = append(errs, "batch.concurrency must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
