package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/adilkhan-s/bikerent-client/pkg/configparser"
)

// Config contains all configuration variables of the client
type (
	Config struct {
		API    APIConfig
		Auth   AuthConfig
		Store  StoreConfig
		Stream StreamConfig

		LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
	}

	APIConfig struct {
		BaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:8000/api"`
		Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
		RetryMax int           `env:"API_RETRY_MAX" envDefault:"2"`
	}

	AuthConfig struct {
		// RenewInterval must stay below the access credential lifetime
		// (15m on the default backend) so the background renewal lands
		// before foreground requests start hitting 401s.
		RenewInterval time.Duration `env:"AUTH_RENEW_INTERVAL" envDefault:"4m"`
	}

	StoreConfig struct {
		// Path of the persisted credential record. Empty means
		// $HOME/.bikerent/credentials.json.
		Path string `env:"STORE_PATH"`
	}

	StreamConfig struct {
		Enabled bool `env:"STREAM_ENABLED" envDefault:"true"`
	}
)

func NewConfig(filepath string) (*Config, error) {
	// Loading file values into the environment, then parsing to config struct.
	if filepath != "" {
		if err := configparser.LoadYamlFile(filepath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}

	return cfg, nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "bikerent", "credentials.json")
	}
	return filepath.Join(home, ".bikerent", "credentials.json")
}
