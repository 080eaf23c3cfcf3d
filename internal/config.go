package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	ATS           ATSConfig           `mapstructure:"ats"`
	Reports       ReportsConfig       `mapstructure:"reports"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// ATSConfig holds one mirror connection per applicant tracking system.
type ATSConfig struct {
	Symplr   MirrorConfig `mapstructure:"symplr"`
	Bullhorn MirrorConfig `mapstructure:"bullhorn"`
}

type MirrorConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Source       string        `mapstructure:"source"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	HoursPerDay  float64       `mapstructure:"hours_per_day"`
}

type ReportsConfig struct {
	SnapshotBatchSize     int           `mapstructure:"snapshot_batch_size"`
	RankingRetentionWeeks int           `mapstructure:"ranking_retention_weeks"`
	HoursRetentionDays    int           `mapstructure:"hours_retention_days"`
	DefaultDivisionID     int64         `mapstructure:"default_division_id"`
	LockTTL               time.Duration `mapstructure:"lock_ttl"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Reports.SnapshotBatchSize <= 0 {
		c.Reports.SnapshotBatchSize = 10
	}
	if c.Reports.RankingRetentionWeeks <= 0 {
		c.Reports.RankingRetentionWeeks = 12
	}
	if c.Reports.HoursRetentionDays <= 0 {
		c.Reports.HoursRetentionDays = 28
	}
	if c.Reports.DefaultDivisionID <= 0 {
		c.Reports.DefaultDivisionID = 1
	}
	if c.Reports.LockTTL <= 0 {
		c.Reports.LockTTL = 10 * time.Minute
	}
	for _, m := range []*MirrorConfig{&c.ATS.Symplr, &c.ATS.Bullhorn} {
		if m.HoursPerDay <= 0 {
			m.HoursPerDay = 8
		}
		if m.QueryTimeout <= 0 {
			m.QueryTimeout = 60 * time.Second
		}
		if m.MaxOpenConns <= 0 {
			m.MaxOpenConns = 5
		}
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
}

// LoadConfigFromEnv builds the configuration from plain environment variables
// for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
			OpenAPIPath:       getEnv("HTTP_OPENAPI_PATH", "./api/openapi.yml"),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		ATS: ATSConfig{
			Symplr: MirrorConfig{
				Enabled: getEnv("SYMPLR_ENABLED", "true") == "true",
				Source:  getEnv("SYMPLR_SOURCE", ""),
			},
			Bullhorn: MirrorConfig{
				Enabled: getEnv("BULLHORN_ENABLED", "true") == "true",
				Source:  getEnv("BULLHORN_SOURCE", ""),
			},
		},
		Reports: ReportsConfig{
			SnapshotBatchSize:     getEnvAsInt("REPORTS_SNAPSHOT_BATCH_SIZE", 10),
			RankingRetentionWeeks: getEnvAsInt("REPORTS_RANKING_RETENTION_WEEKS", 12),
			HoursRetentionDays:    getEnvAsInt("REPORTS_HOURS_RETENTION_DAYS", 28),
			DefaultDivisionID:     int64(getEnvAsInt("REPORTS_DEFAULT_DIVISION_ID", 1)),
			LockTTL:               getEnvAsDuration("REPORTS_LOCK_TTL", 10*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Security: SecurityConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTIssuer: getEnv("JWT_ISSUER", ""),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.ATS.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("ats config: %v", err))
	}

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("redis config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *ATSConfig) Validate() error {
	if !c.Symplr.Enabled && !c.Bullhorn.Enabled {
		return errors.New("at least one ats mirror must be enabled")
	}
	if c.Symplr.Enabled && c.Symplr.Source == "" {
		return errors.New("symplr.source is required when symplr is enabled")
	}
	if c.Bullhorn.Enabled && c.Bullhorn.Source == "" {
		return errors.New("bullhorn.source is required when bullhorn is enabled")
	}
	return nil
}

func (c *RedisConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return errors.New("addr is required when redis is enabled")
	}
	return nil
}
