package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Mapbox    MapboxConfig    `mapstructure:"mapbox"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Search    SearchConfig    `mapstructure:"search"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Language  string          `mapstructure:"language"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL      string `mapstructure:"url"`
	DeviceID string `mapstructure:"device_id"`
}

type ValkeyConfig struct {
	Addr      string `mapstructure:"addr"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MapboxConfig points at the search and directions APIs. When StaticToken
// is empty the access token is fetched from TokenURL with the session.
type MapboxConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	StaticToken    string        `mapstructure:"static_token"`
	TokenURL       string        `mapstructure:"token_url"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig configures the map token endpoint served by the agent.
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	MapboxPublicToken string `mapstructure:"mapbox_public_token"`
	SessionToken      string `mapstructure:"session_token"`
	UserID            string `mapstructure:"user_id"`
}

type TrackingConfig struct {
	NoiseFloorKm float64       `mapstructure:"noise_floor_km"`
	HighAccuracy bool          `mapstructure:"high_accuracy"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxCacheAge  time.Duration `mapstructure:"max_cache_age"`
	VehicleID    string        `mapstructure:"vehicle_id"`
}

type SearchConfig struct {
	RadiusKm        float64 `mapstructure:"radius_km"`
	PerTermLimit    int     `mapstructure:"per_term_limit"`
	MaxResults      int     `mapstructure:"max_results"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
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

	// Environment variables: CARCOMPANION_MAPBOX_BASE_URL → mapbox.base_url
	v.SetEnvPrefix("CARCOMPANION")
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

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "carcompanion")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "carcompanion")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.device_id", "default")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.key_prefix", "carcompanion:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("mapbox.base_url", "https://api.mapbox.com")
	v.SetDefault("mapbox.static_token", "")
	v.SetDefault("mapbox.token_url", "http://localhost:8080/v1/map-token")
	v.SetDefault("mapbox.token_ttl", 30*time.Minute)
	v.SetDefault("mapbox.request_timeout", 15*time.Second)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.mapbox_public_token", "")
	v.SetDefault("auth.session_token", "")
	v.SetDefault("auth.user_id", "")
	v.SetDefault("tracking.noise_floor_km", 0.01)
	v.SetDefault("tracking.high_accuracy", true)
	v.SetDefault("tracking.timeout", 10*time.Second)
	v.SetDefault("tracking.max_cache_age", time.Duration(0))
	v.SetDefault("tracking.vehicle_id", "default")
	v.SetDefault("search.radius_km", 50.0)
	v.SetDefault("search.per_term_limit", 5)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.cache_ttl_seconds", 300)
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "trip-archive")
	v.SetDefault("language", "en")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.NATS.DeviceID == "" || strings.ContainsAny(c.NATS.DeviceID, ".*> ") {
		errs = append(errs, fmt.Sprintf("nats.device_id must be a single subject token, got %q", c.NATS.DeviceID))
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Mapbox.BaseURL == "" {
		errs = append(errs, "mapbox.base_url is required")
	}
	if c.Mapbox.StaticToken == "" && c.Mapbox.TokenURL == "" {
		errs = append(errs, "one of mapbox.static_token or mapbox.token_url is required")
	}
	if c.Mapbox.RequestTimeout <= 0 {
		errs = append(errs, "mapbox.request_timeout must be positive")
	}
	if c.Tracking.NoiseFloorKm < 0 {
		errs = append(errs, "tracking.noise_floor_km must not be negative")
	}
	if c.Tracking.Timeout <= 0 {
		errs = append(errs, "tracking.timeout must be positive")
	}
	if c.Tracking.MaxCacheAge < 0 {
		errs = append(errs, "tracking.max_cache_age must not be negative")
	}
	if c.Search.RadiusKm <= 0 {
		errs = append(errs, "search.radius_km must be positive")
	}
	if c.Search.PerTermLimit <= 0 {
		errs = append(errs, "search.per_term_limit must be positive")
	}
	if c.Search.MaxResults <= 0 {
		errs = append(errs, "search.max_results must be positive")
	}
	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
