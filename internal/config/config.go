package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is loaded from the environment; log settings can additionally be
// overridden by an optional YAML file.
type Config struct {
	RedisURL   string `envconfig:"REDIS_URL" default:"redis://127.0.0.1/"`
	Port       int    `envconfig:"PORT" default:"3030"`
	ConfigFile string `envconfig:"CONFIG_FILE"`

	Log LogConfig
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Format string `envconfig:"LOG_FORMAT" default:"console" yaml:"format"`
	Output string `envconfig:"LOG_OUTPUT" default:"stderr" yaml:"output"`
}

// Load reads configuration from the environment, then overlays the log
// section of the YAML file named by CONFIG_FILE when one is set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	if cfg.ConfigFile != "" {
		if err := loadFile(cfg.ConfigFile, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var file struct {
		Log LogConfig `yaml:"log"`
	}
	file.Log = cfg.Log
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("error parsing YAML: %w", err)
	}
	cfg.Log = file.Log
	return nil
}
