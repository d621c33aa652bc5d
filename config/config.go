// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/pushbridge/pushbridge/logger"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minAPIKeyLength = 8
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
}

// FCMConfig holds the credentials and HTTP settings for the Instance ID
// batch-import API.
type FCMConfig struct {
	// APIKey is the FCM server key sent in the Authorization header.
	APIKey string `mapstructure:"API_KEY" yaml:"api_key"`
	// TimeoutSeconds is the HTTP client timeout for exchange requests.
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// AppConfig describes the iOS application whose tokens are exchanged.
type AppConfig struct {
	// BundleID is sent as the application field of the batch-import body.
	BundleID string `mapstructure:"BUNDLE_ID" yaml:"bundle_id"`
	Name     string `mapstructure:"NAME" yaml:"name"`
	Version  string `mapstructure:"VERSION" yaml:"version"`
	Build    string `mapstructure:"BUILD" yaml:"build"`
}

// WorkerPoolConfig holds configuration for the exchange worker pool.
type WorkerPoolConfig struct {
	// MaxWorkers is the number of concurrent workers (default: 10)
	MaxWorkers int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	// QueueSize is the maximum number of pending jobs (default: 1000)
	QueueSize int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	// ShutdownTimeoutSeconds is the max time to wait for workers during shutdown (default: 30)
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server     ServerConfig     `mapstructure:"SERVER" yaml:"server"`
	FCM        FCMConfig        `mapstructure:"FCM" yaml:"fcm"`
	App        AppConfig        `mapstructure:"APP" yaml:"app"`
	WorkerPool WorkerPoolConfig `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("FCM.API_KEY", "")
	v.SetDefault("FCM.TIMEOUT_SECONDS", 10)
	v.SetDefault("APP.BUNDLE_ID", "")
	v.SetDefault("APP.NAME", "")
	v.SetDefault("APP.VERSION", "")
	v.SetDefault("APP.BUILD", "")
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 10)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 1000)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables
	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.VERSION", "SERVER_VERSION"},
		// FCM config
		{"FCM.API_KEY", "FCM_API_KEY"},
		{"FCM.TIMEOUT_SECONDS", "FCM_TIMEOUT_SECONDS"},
		// App config
		{"APP.BUNDLE_ID", "APP_BUNDLE_ID"},
		{"APP.NAME", "APP_NAME"},
		{"APP.VERSION", "APP_VERSION"},
		{"APP.BUILD", "APP_BUILD"},
		// WorkerPool config
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"allowed_origins", v.GetString("SERVER.ALLOWED_ORIGINS"),
		"bundle_id", v.GetString("APP.BUNDLE_ID"),
		"fcm_api_key", logger.MaskAPIKey(v.GetString("FCM.API_KEY")),
		"fcm_timeout_seconds", v.GetInt("FCM.TIMEOUT_SECONDS"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	// Validate Server Config
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if cfg.Server.Environment != EnvDevelopment && cfg.Server.Environment != EnvProduction {
		return fmt.Errorf("server environment must be %q or %q, got %q",
			EnvDevelopment, EnvProduction, cfg.Server.Environment)
	}
	// Validate AllowedOrigins format if not wildcard
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	// Validate FCM Config. The exchange client refuses to start without a
	// key, so fail here with a clear message instead of at first use.
	if cfg.FCM.APIKey == "" {
		return fmt.Errorf("FCM API key is required")
	}
	if len(cfg.FCM.APIKey) < minAPIKeyLength {
		return fmt.Errorf("FCM API key must be at least %d characters long", minAPIKeyLength)
	}
	if cfg.FCM.TimeoutSeconds <= 0 {
		return fmt.Errorf("FCM timeout must be positive")
	}

	// Validate WorkerPool config
	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
