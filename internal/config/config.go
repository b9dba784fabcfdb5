package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	View     ViewConfig     `mapstructure:"view"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url" envconfig:"API_BASE_URL"`
	// Prefix is prepended to every resource path, e.g. /api/v1.
	Prefix  string        `mapstructure:"prefix" envconfig:"API_PREFIX"`
	Timeout time.Duration `mapstructure:"timeout" envconfig:"API_TIMEOUT"`
	// RateLimit caps outbound requests per second; zero disables the limiter.
	RateLimit float64 `mapstructure:"rate_limit" envconfig:"API_RATE_LIMIT"`
	Burst     int     `mapstructure:"burst" envconfig:"API_BURST"`
}

type ViewConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size" envconfig:"VIEW_DEFAULT_PAGE_SIZE"`
}

type NotifierConfig struct {
	SuccessDismiss time.Duration `mapstructure:"success_dismiss"`
	ErrorDismiss   time.Duration `mapstructure:"error_dismiss"`
	InfoDismiss    time.Duration `mapstructure:"info_dismiss"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	Username string `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"SMTP_FROM"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" envconfig:"LOG_PRETTY"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Prefix:  "/api/v1",
			Timeout: 0, // no client-imposed deadline; callers pass contexts
		},
		View: ViewConfig{DefaultPageSize: 10},
		Notifier: NotifierConfig{
			SuccessDismiss: 3 * time.Second,
			ErrorDismiss:   4 * time.Second,
			InfoDismiss:    3 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Pretty: true},
	}
}

// LoadConfig reads config.yaml, falls back to defaults when the file is
// absent, then applies environment overrides via envconfig.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	config := Default()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := viper.Unmarshal(config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := envconfig.Process("console", config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if config.View.DefaultPageSize <= 0 {
		config.View.DefaultPageSize = 10
	}

	return config, nil
}
