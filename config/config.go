// ABOUTME: Application configuration loaded from config file, .env, and environment
// ABOUTME: Uses viper with AGENCYCRM_ prefixed variables and XDG default paths
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName names the XDG directories and the env prefix.
const AppName = "agencycrm"

// Config holds every tunable of the CLI, TUI, and web dashboard.
type Config struct {
	APIBaseURL  string
	Email       string
	Password    string
	HTTPTimeout time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string

	RollbackPaymentOnError bool
	BulkConcurrency        int
	ActivityLimit          int

	WebPort   int
	CachePath string
	TokenPath string
}

// Sources points the loader at its inputs.
type Sources struct {
	ConfigDir string // directory holding config.yaml
	DotEnv    string // .env file, loaded without overriding the environment
}

// DefaultSources reads config.yaml from the XDG config dir and .env from the working directory.
func DefaultSources() Sources {
	return Sources{
		ConfigDir: filepath.Join(xdg.ConfigHome, AppName),
		DotEnv:    ".env",
	}
}

// Load reads configuration from the default sources.
func Load() (*Config, error) {
	return LoadFrom(DefaultSources())
}

// LoadFrom reads configuration; environment variables win over the config file.
func LoadFrom(src Sources) (*Config, error) {
	if src.DotEnv != "" {
		if err := godotenv.Load(src.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", src.DotEnv, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if src.ConfigDir != "" {
		v.AddConfigPath(src.ConfigDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		APIBaseURL:             strings.TrimRight(v.GetString("api_base_url"), "/"),
		Email:                  v.GetString("email"),
		Password:               v.GetString("password"),
		HTTPTimeout:            v.GetDuration("http_timeout"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
		LogFile:                v.GetString("log_file"),
		RollbackPaymentOnError: v.GetBool("rollback_payment_on_error"),
		BulkConcurrency:        v.GetInt("bulk_concurrency"),
		ActivityLimit:          v.GetInt("activity_limit"),
		WebPort:                v.GetInt("web_port"),
		CachePath:              v.GetString("cache_path"),
		TokenPath:              v.GetString("token_path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base_url", "http://localhost:8000")
	v.SetDefault("email", "demo@agency.local")
	v.SetDefault("password", "demo-password")
	v.SetDefault("http_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", filepath.Join(xdg.StateHome, AppName, AppName+".log"))
	v.SetDefault("rollback_payment_on_error", false)
	v.SetDefault("bulk_concurrency", 8)
	v.SetDefault("activity_limit", 50)
	v.SetDefault("web_port", 8080)
	v.SetDefault("cache_path", filepath.Join(xdg.DataHome, AppName, "cache.db"))
	v.SetDefault("token_path", filepath.Join(xdg.DataHome, AppName, "token.json"))
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("bulk_concurrency must be at least 1, got %d", c.BulkConcurrency)
	}
	if c.ActivityLimit < 1 {
		return fmt.Errorf("activity_limit must be at least 1, got %d", c.ActivityLimit)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	return nil
}
