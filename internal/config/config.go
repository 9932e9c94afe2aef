// Package config loads the shellnode configuration from an optional YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the full shellnode configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Genesis GenesisConfig `yaml:"genesis"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `yaml:"host" env:"SHELLNODE_HOST"`
	Port    int           `yaml:"port" env:"SHELLNODE_PORT"`
	Timeout time.Duration `yaml:"timeout" env:"SHELLNODE_TIMEOUT"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"SHELLNODE_LOG_LEVEL"`
	Format string `yaml:"format" env:"SHELLNODE_LOG_FORMAT"`
	Output string `yaml:"output" env:"SHELLNODE_LOG_OUTPUT"`
}

// GenesisConfig lists accounts funded when the devnet chain starts.
type GenesisConfig struct {
	Accounts []GenesisAccount `yaml:"accounts"`
}

// GenesisAccount funds one address at startup.
type GenesisAccount struct {
	Address string `yaml:"address"`
	Balance int64  `yaml:"balance"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8090,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the config file at path (missing file falls back to defaults)
// and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults are a complete configuration.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}
