package config

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the docwatch configuration file.
type Config struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	History HistoryConfig `yaml:"history"`
	UI      UIConfig      `yaml:"ui"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig locates the extraction service.
type ServerConfig struct {
	BaseURL         string        `yaml:"base_url"`
	StreamPath      string        `yaml:"stream_path"`
	RequestIDHeader string        `yaml:"request_id_header"`
	Timeout         time.Duration `yaml:"timeout"`
	HealthRetries   int           `yaml:"health_retries"`
}

// UploadConfig bounds the documents the CLI accepts.
type UploadConfig struct {
	MaxMB int `yaml:"max_mb"`
}

// HistoryConfig controls the local run history.
type HistoryConfig struct {
	// Enabled is a pointer so an explicit false survives Normalize.
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UIConfig selects the renderer.
type UIConfig struct {
	Mode string `yaml:"mode"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// HistoryEnabled reports whether runs are recorded.
func (c Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// ParseConfig decodes a single YAML document, rejecting unknown keys.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if err == io.EOF {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
