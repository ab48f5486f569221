package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from repograph.yml.
type ProjectConfig struct {
	Database    string   `yaml:"database,omitempty"`
	Workers     int      `yaml:"workers,omitempty"`
	Ignore      []string `yaml:"ignore,omitempty"`
	MaxSizeMB   int      `yaml:"maxSizeMB,omitempty"`
	LogLevel    string   `yaml:"logLevel,omitempty"`
	MetricsAddr string   `yaml:"metricsAddr,omitempty"`
}

// Load attempts to read repograph.yml or repograph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"repograph.yml", "repograph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// LoadFile reads an explicitly named config file. Unlike Load, a missing
// file is an error here: the caller asked for this file specifically.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
