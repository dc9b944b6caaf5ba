package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for geoscope
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// AnalyzerConfig controls the page-analysis collaborator
type AnalyzerConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AuditConfig controls the multi-page orchestration engine
type AuditConfig struct {
	MaxPages          int           `mapstructure:"max_pages"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	AttemptTimeout    time.Duration `mapstructure:"attempt_timeout"`
	SinglePageTimeout time.Duration `mapstructure:"single_page_timeout"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	VarianceThreshold int           `mapstructure:"variance_threshold"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

// DatabasesConfig groups external datastore settings
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings for the recorder
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis settings (scheduler locking)
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchedulerConfig lists recurring audits
type SchedulerConfig struct {
	Enabled bool            `mapstructure:"enabled"`
	Entries []ScheduleEntry `mapstructure:"entries"`
}

// ScheduleEntry describes one recurring domain audit
type ScheduleEntry struct {
	Domain string   `mapstructure:"domain"`
	Pages  []string `mapstructure:"pages"`
	Cron   string   `mapstructure:"cron"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (databases.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// LoadConfig loads configuration from file and environment variables.
// Path may be empty, in which case geoscope.yaml is searched in ./config and the cwd.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("geoscope")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("GEOSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; defaults plus env cover the common case.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.listen", ":10020")

	viper.SetDefault("analyzer.timeout", "180s")
	viper.SetDefault("analyzer.cache_ttl", "24h")

	viper.SetDefault("audit.max_pages", 5)
	viper.SetDefault("audit.max_attempts", 3)
	viper.SetDefault("audit.attempt_timeout", "90s")
	viper.SetDefault("audit.single_page_timeout", "180s")
	viper.SetDefault("audit.retry_base_delay", "2s")
	viper.SetDefault("audit.session_timeout", "15m")
	viper.SetDefault("audit.session_ttl", "30m")
	viper.SetDefault("audit.sweep_interval", "5m")
	viper.SetDefault("audit.variance_threshold", 10)
	viper.SetDefault("audit.poll_interval", "3s")

	viper.SetDefault("databases.postgres.port", 5432)
	viper.SetDefault("databases.postgres.sslmode", "disable")
	viper.SetDefault("databases.redis.addr", "")
	viper.SetDefault("databases.redis.db", 0)

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("telemetry.enabled", true)
}

func overrideFromEnv() {
	if key := os.Getenv("ANALYZER_API_KEY"); key != "" {
		viper.Set("analyzer.api_key", key)
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("databases.postgres.url", url)
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		viper.Set("databases.postgres.host", host)
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("databases.postgres.port", p)
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		viper.Set("databases.postgres.user", user)
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		viper.Set("databases.postgres.password", pass)
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		viper.Set("databases.postgres.dbname", db)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		viper.Set("databases.redis.addr", addr)
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		viper.Set("databases.redis.password", password)
	}
	if secret := os.Getenv("GEOSCOPE_JWT_SECRET"); secret != "" {
		viper.Set("server.jwt_secret", secret)
	}
}

func validateConfig(config *Config) error {
	if config.Audit.MaxPages <= 0 {
		return fmt.Errorf("audit.max_pages must be positive")
	}
	if config.Audit.MaxAttempts <= 0 {
		return fmt.Errorf("audit.max_attempts must be positive")
	}
	if config.Audit.VarianceThreshold < 0 {
		return fmt.Errorf("audit.variance_threshold cannot be negative")
	}
	if config.Audit.AttemptTimeout > config.Audit.SinglePageTimeout {
		return fmt.Errorf("audit.attempt_timeout cannot exceed audit.single_page_timeout")
	}
	for i, entry := range config.Scheduler.Entries {
		if entry.Domain == "" {
			return fmt.Errorf("scheduler.entries[%d].domain is required", i)
		}
		if len(entry.Pages) == 0 {
			return fmt.Errorf("scheduler.entries[%d].pages is required", i)
		}
	}
	return nil
}
