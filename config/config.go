// Package config loads decoder and service settings from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jddeal/nexrad-l2/archive2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the file-backed configuration shared by the commands.
type Config struct {
	Decoder archive2.Config `yaml:"decoder" toml:"decoder"`
	Logging Logging         `yaml:"logging" toml:"logging"`
	Server  Server          `yaml:"server" toml:"server"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level" toml:"level"`
}

// Server configures l2serv.
type Server struct {
	Addr           string `yaml:"addr" toml:"addr"`
	Region         string `yaml:"region" toml:"region"`
	Bucket         string `yaml:"bucket" toml:"bucket"`
	RealtimeBucket string `yaml:"realtime_bucket" toml:"realtime_bucket"`
	// RecentFiles is how many archive files a site listing returns.
	RecentFiles int `yaml:"recent_files" toml:"recent_files"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Decoder: archive2.DefaultConfig(),
		Logging: Logging{
			Level: "info",
		},
		Server: Server{
			Addr:           "0.0.0.0:8081",
			Region:         "us-east-1",
			Bucket:         "noaa-nexrad-level2",
			RealtimeBucket: "unidata-nexrad-level2-chunks",
			RecentFiles:    30,
		},
	}
}

// LoadConfig reads the file at configPath over the defaults. The format follows the
// extension: .yaml/.yml or .toml.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	config := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(configPath)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".toml":
		meta, err := toml.DecodeFile(configPath, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			logrus.Warnf("config %s: unknown keys %v", configPath, undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return config, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Decoder.Validate(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Server.RecentFiles < 1 {
		return fmt.Errorf("server: recent_files must be at least 1, got %d", c.Server.RecentFiles)
	}
	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Logging.Level)
}
