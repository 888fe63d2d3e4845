package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment overrides applied after the config file.
const (
	EnvBaseURL     = "DOCWATCH_BASE_URL"
	EnvTimeout     = "DOCWATCH_TIMEOUT"
	EnvMaxUploadMB = "DOCWATCH_MAX_UPLOAD_MB"
	EnvLogLevel    = "DOCWATCH_LOG_LEVEL"
	EnvUI          = "DOCWATCH_UI"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads, parses, applies overrides, normalizes, and validates a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, err
	}
	return finish(cfg, RootFromConfigPath(path))
}

// Resolve loads the explicit path, or the config found above startDir, or
// the defaults when neither exists. It returns the path that was used.
func Resolve(explicitPath, startDir string) (Config, string, error) {
	if strings.TrimSpace(explicitPath) != "" {
		cfg, err := Load(explicitPath)
		return cfg, explicitPath, err
	}
	path, err := FindConfigPath(startDir)
	if err == nil {
		cfg, err := Load(path)
		return cfg, path, err
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return Config{}, "", err
	}
	root := startDir
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return Config{}, "", fmt.Errorf("get working directory: %w", err)
		}
	}
	cfg, err := finish(Config{}, root)
	return cfg, "", err
}

// finish runs the shared tail of every load path.
func finish(cfg Config, root string) (Config, error) {
	if err := loadEnvFile(root); err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	Normalize(&cfg, root)
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadEnvFile loads root/.env when present. Existing variables win.
func loadEnvFile(root string) error {
	path := filepath.Join(root, EnvFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config fields from DOCWATCH_* variables.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if value, ok := lookupTrimmed(lookup, EnvBaseURL); ok {
		cfg.Server.BaseURL = value
	}
	if value, ok := lookupTrimmed(lookup, EnvTimeout); ok {
		timeout, err := parseTimeout(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Server.Timeout = timeout
	}
	if value, ok := lookupTrimmed(lookup, EnvMaxUploadMB); ok {
		mb, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", EnvMaxUploadMB, value)
		}
		cfg.Upload.MaxMB = mb
	}
	if value, ok := lookupTrimmed(lookup, EnvLogLevel); ok {
		cfg.Log.Level = value
	}
	if value, ok := lookupTrimmed(lookup, EnvUI); ok {
		cfg.UI.Mode = value
	}
	return nil
}

// lookupTrimmed returns a non-empty trimmed variable.
func lookupTrimmed(lookup LookupFunc, key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// parseTimeout accepts Go durations and bare seconds.
func parseTimeout(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return timeout, nil
}
