package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Defaults applied by Normalize.
const (
	DefaultBaseURL         = "http://127.0.0.1:8000"
	DefaultStreamPath      = "/api/extract/stream"
	DefaultRequestIDHeader = "X-Request-Id"
	DefaultTimeout         = 300 * time.Second
	DefaultHealthRetries   = 3
	DefaultMaxUploadMB     = 15
	DefaultUIMode          = "auto"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Default returns a normalized config with every default applied.
func Default() Config {
	cfg := Config{Version: 1}
	Normalize(&cfg, "")
	return cfg
}

// Normalize fills unset fields with defaults. Relative history paths are
// resolved against root when root is not empty.
func Normalize(cfg *Config, root string) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Server.StreamPath) == "" {
		cfg.Server.StreamPath = DefaultStreamPath
	}
	if strings.TrimSpace(cfg.Server.RequestIDHeader) == "" {
		cfg.Server.RequestIDHeader = DefaultRequestIDHeader
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = DefaultTimeout
	}
	if cfg.Server.HealthRetries == 0 {
		cfg.Server.HealthRetries = DefaultHealthRetries
	}
	if cfg.Upload.MaxMB == 0 {
		cfg.Upload.MaxMB = DefaultMaxUploadMB
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if root != "" && cfg.History.Path != MemoryHistory && !filepath.IsAbs(cfg.History.Path) {
		cfg.History.Path = filepath.Join(root, cfg.History.Path)
	}
	cfg.UI.Mode = strings.ToLower(strings.TrimSpace(cfg.UI.Mode))
	if cfg.UI.Mode == "" {
		cfg.UI.Mode = DefaultUIMode
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
