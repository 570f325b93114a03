// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. FINTRACK_LOG_LEVEL.
const EnvPrefix = "FINTRACK"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Import struct {
		PreambleScanLines int           `mapstructure:"preamble_scan_lines" yaml:"preamble_scan_lines"`
		MaxFileBytes      int64         `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
		CategoriesFile    string        `mapstructure:"categories_file" yaml:"categories_file"`
		SessionTTL        time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	} `mapstructure:"import" yaml:"import"`

	Cache struct {
		QueryTTL  time.Duration `mapstructure:"query_ttl" yaml:"query_ttl"`
		StaticTTL time.Duration `mapstructure:"static_ttl" yaml:"static_ttl"`
		GCTime    time.Duration `mapstructure:"gc_time" yaml:"gc_time"`
	} `mapstructure:"cache" yaml:"cache"`

	RateLimit struct {
		MaxRequests   int    `mapstructure:"max_requests" yaml:"max_requests"`
		WindowMinutes int    `mapstructure:"window_minutes" yaml:"window_minutes"`
		FunctionURL   string `mapstructure:"function_url" yaml:"function_url"`
	} `mapstructure:"ratelimit" yaml:"ratelimit"`

	AI struct {
		Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
		Provider       string        `mapstructure:"provider" yaml:"provider"`
		Model          string        `mapstructure:"model" yaml:"model"`
		MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
		InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
		TimeoutSeconds int           `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		FunctionURL    string        `mapstructure:"function_url" yaml:"function_url"`
		APIKey         string        `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`

	OCR struct {
		FunctionURL string `mapstructure:"function_url" yaml:"function_url"`
		UseGemini   bool   `mapstructure:"use_gemini" yaml:"use_gemini"`
	} `mapstructure:"ocr" yaml:"ocr"`

	Database struct {
		DSN         string `mapstructure:"dsn" yaml:"-"`
		AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
	} `mapstructure:"database" yaml:"database"`

	Functions struct {
		APIKey string `mapstructure:"api_key" yaml:"-"`
	} `mapstructure:"functions" yaml:"functions"`

	Server struct {
		Addr           string   `mapstructure:"addr" yaml:"addr"`
		AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	} `mapstructure:"server" yaml:"server"`
}

// InitializeConfig loads configuration from the default locations.
func InitializeConfig() (*Config, error) {
	return Load("")
}

// Load initializes Viper configuration with hierarchical loading. A non-empty
// path replaces the search for config.yaml and must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.fintrack")
		v.AddConfigPath(".fintrack")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 5. Secrets keep their conventional unprefixed names
	if err := v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY: %w", err)
	}
	if err := v.BindEnv("functions.api_key", EnvPrefix+"_FUNCTIONS_API_KEY", "FUNCTIONS_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind FUNCTIONS_API_KEY: %w", err)
	}
	if err := v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("import.preamble_scan_lines", 30)
	v.SetDefault("import.max_file_bytes", 10<<20)
	v.SetDefault("import.categories_file", "")
	v.SetDefault("import.session_ttl", 30*time.Minute)

	v.SetDefault("cache.query_ttl", 30*time.Second)
	v.SetDefault("cache.static_ttl", 60*time.Second)
	v.SetDefault("cache.gc_time", 5*time.Minute)

	v.SetDefault("ratelimit.max_requests", 20)
	v.SetDefault("ratelimit.window_minutes", 1)
	v.SetDefault("ratelimit.function_url", "")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.initial_backoff", time.Second)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.function_url", "")

	v.SetDefault("ocr.function_url", "")
	v.SetDefault("ocr.use_gemini", false)

	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Import.PreambleScanLines < 1 {
		return fmt.Errorf("import.preamble_scan_lines must be positive, got: %d", config.Import.PreambleScanLines)
	}
	if config.Import.MaxFileBytes < 1 {
		return fmt.Errorf("import.max_file_bytes must be positive, got: %d", config.Import.MaxFileBytes)
	}

	if config.Cache.QueryTTL <= 0 || config.Cache.StaticTTL <= 0 || config.Cache.GCTime <= 0 {
		return fmt.Errorf("cache durations must be positive")
	}

	if config.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("ratelimit.max_requests must be positive, got: %d", config.RateLimit.MaxRequests)
	}
	if config.RateLimit.WindowMinutes < 1 {
		return fmt.Errorf("ratelimit.window_minutes must be positive, got: %d", config.RateLimit.WindowMinutes)
	}

	if config.AI.MaxRetries < 1 || config.AI.MaxRetries > 10 {
		return fmt.Errorf("ai.max_retries must be between 1 and 10, got: %d", config.AI.MaxRetries)
	}
	if config.AI.InitialBackoff <= 0 {
		return fmt.Errorf("ai.initial_backoff must be positive")
	}

	if config.AI.Enabled {
		switch config.AI.Provider {
		case "gemini":
			if config.AI.APIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY required when AI is enabled")
			}
		case "function":
			if config.AI.FunctionURL == "" {
				return fmt.Errorf("ai.function_url required when ai.provider is 'function'")
			}
		default:
			return fmt.Errorf("invalid ai.provider: %s (must be 'gemini' or 'function')", config.AI.Provider)
		}

		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
	}

	if config.OCR.UseGemini && config.AI.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY required when ocr.use_gemini is set")
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
