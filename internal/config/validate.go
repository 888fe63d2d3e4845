package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Issue captures a validation problem with a config field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates config validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(lines, "\n")
}

// issueCollector accumulates validation issues.
type issueCollector struct {
	issues []Issue
}

// add records a new validation issue.
func (c *issueCollector) add(field, message string) {
	c.issues = append(c.issues, Issue{Field: field, Message: message})
}

// result returns a ValidationError when issues are present.
func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}

var (
	uiModes    = []string{"auto", "live", "plain"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks a normalized config and reports every issue at once.
func Validate(cfg *Config) error {
	collector := &issueCollector{}

	if cfg.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}

	validateServer(cfg.Server, collector.add)

	if cfg.Upload.MaxMB < 0 {
		collector.add("upload.max_mb", "must be > 0")
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		collector.add("history.path", "is required")
	}
	if !slices.Contains(uiModes, cfg.UI.Mode) {
		collector.add("ui.mode", fmt.Sprintf("unsupported mode %q (expected %s)", cfg.UI.Mode, strings.Join(uiModes, "|")))
	}
	if !slices.Contains(logLevels, cfg.Log.Level) {
		collector.add("log.level", fmt.Sprintf("unsupported level %q", cfg.Log.Level))
	}
	if !slices.Contains(logFormats, cfg.Log.Format) {
		collector.add("log.format", fmt.Sprintf("unsupported format %q", cfg.Log.Format))
	}

	return collector.result()
}

// validateServer checks the service address and request settings.
func validateServer(server ServerConfig, add func(field, message string)) {
	parsed, err := url.Parse(server.BaseURL)
	switch {
	case err != nil:
		add("server.base_url", fmt.Sprintf("invalid url: %v", err))
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		add("server.base_url", fmt.Sprintf("unsupported scheme %q", parsed.Scheme))
	case parsed.Host == "":
		add("server.base_url", "host is required")
	}
	if !strings.HasPrefix(server.StreamPath, "/") {
		add("server.stream_path", "must start with /")
	}
	if strings.ContainsAny(server.RequestIDHeader, " \t:") {
		add("server.request_id_header", fmt.Sprintf("invalid header name %q", server.RequestIDHeader))
	}
	if server.Timeout < 0 {
		add("server.timeout", "must be >= 0")
	}
	if server.HealthRetries < 0 {
		add("server.health_retries", "must be >= 0")
	}
}
