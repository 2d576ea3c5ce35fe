package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DelayPolicy decides how orders with no delivered date count toward a
// customer's average delay: treated as zero delay, or left out of the
// mean entirely.
type DelayPolicy string

const (
	DelayZeroFill DelayPolicy = "zero"
	DelayExclude  DelayPolicy = "exclude"
)

// DatasetFormat selects the on-disk encoding of the five source tables.
type DatasetFormat string

const (
	FormatParquet DatasetFormat = "parquet"
	FormatCSV     DatasetFormat = "csv"
)

type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Pipeline PipelineConfig
	Profile  ProfileConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatasetConfig describes where the snapshot lives. The loader probes
// Dir, then Dir/Subdir, then FallbackDir, and settles on the first one
// containing the orders marker file.
type DatasetConfig struct {
	Dir         string
	Subdir      string
	FallbackDir string
	Format      DatasetFormat
	CacheDir    string
}

type PipelineConfig struct {
	DelayPolicy DelayPolicy
	SampleSize  int
}

// ProfileConfig selects the presentation profile: one of the built-in
// label sets, optionally overridden by a YAML file.
type ProfileConfig struct {
	Name string
	File string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

func Load() (*Config, error) {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Dataset: DatasetConfig{
			Dir:         getEnvString("DATASET_DIR", "."),
			Subdir:      getEnvString("DATASET_SUBDIR", "DATA_PARQUET"),
			FallbackDir: getEnvString("DATASET_FALLBACK_DIR", "/srv/olist/DATA_PARQUET"),
			Format:      DatasetFormat(getEnvString("DATASET_FORMAT", string(FormatParquet))),
			CacheDir:    getEnvString("DATASET_CACHE_DIR", ".cache"),
		},
		Pipeline: PipelineConfig{
			DelayPolicy: DelayPolicy(getEnvString("DELAY_POLICY", string(DelayZeroFill))),
			SampleSize:  getEnvInt("PLOT_SAMPLE_SIZE", 5000),
		},
		Profile: ProfileConfig{
			Name: getEnvString("PROFILE_NAME", "english"),
			File: getEnvString("PROFILE_FILE", ""),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.Dir == "" {
		return fmt.Errorf("dataset directory cannot be empty")
	}

	switch c.Dataset.Format {
	case FormatParquet, FormatCSV:
	default:
		return fmt.Errorf("invalid dataset format %q, must be %q or %q", c.Dataset.Format, FormatParquet, FormatCSV)
	}

	switch c.Pipeline.DelayPolicy {
	case DelayZeroFill, DelayExclude:
	default:
		return fmt.Errorf("invalid delay policy %q, must be %q or %q", c.Pipeline.DelayPolicy, DelayZeroFill, DelayExclude)
	}

	if c.Pipeline.SampleSize <= 0 {
		return fmt.Errorf("plot sample size must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
