package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfig = `version: 1

server:
  # Address of the extraction service.
  base_url: "http://127.0.0.1:8000"
  stream_path: "/api/extract/stream"
  request_id_header: "X-Request-Id"
  # The whole submission is aborted after this long.
  timeout: 300s
  health_retries: 3

upload:
  max_mb: 15

history:
  enabled: true
  path: ".docwatch/history.duckdb"

ui:
  # auto | live | plain
  mode: auto

log:
  # debug | info | warn | error
  level: info
  # text | json
  format: text
  # file: ".docwatch/docwatch.log"
`

// Scaffold writes the default config file at configPath.
func Scaffold(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(configPath); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", configPath)
		}
		return fmt.Errorf("config file already exists at %q", configPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
