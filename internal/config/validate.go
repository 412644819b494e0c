package config

import (
	"fmt"
	"strings"
)

// Valid logging formats.
var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

// Valid logging levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks a Config for invalid or self-contradictory settings.
// The token is deliberately not required here: read-only and local-only
// commands (history, list, dryrun) work without one, and the client
// surfaces a clear unauthorized error when a token is actually needed.
func Validate(cfg *Config) error {
	if cfg.Engine.PageSize < 1 {
		return fmt.Errorf("engine.page_size must be positive, got %d", cfg.Engine.PageSize)
	}

	if cfg.Engine.MaxPages < 1 {
		return fmt.Errorf("engine.max_pages must be positive, got %d", cfg.Engine.MaxPages)
	}

	if cfg.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be positive, got %d", cfg.Engine.Workers)
	}

	if cfg.Engine.UndoWindowMinutes < 1 {
		return fmt.Errorf("engine.undo_window_minutes must be positive, got %d", cfg.Engine.UndoWindowMinutes)
	}

	if strings.TrimSpace(cfg.Engine.ExclusionList) == "" {
		return fmt.Errorf("engine.exclusion_list must not be blank")
	}

	if !strings.HasPrefix(cfg.GitHub.APIBaseURL, "http://") && !strings.HasPrefix(cfg.GitHub.APIBaseURL, "https://") {
		return fmt.Errorf("github.api_base_url must be an http(s) URL, got %q", cfg.GitHub.APIBaseURL)
	}

	if cfg.Mail.Enabled {
		if cfg.Mail.SMTPAddr == "" {
			return fmt.Errorf("mail.smtp_addr is required when mail.enabled is true")
		}

		if cfg.Mail.To == "" {
			return fmt.Errorf("mail.to is required when mail.enabled is true")
		}
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", cfg.Logging.Level)
	}

	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of auto/text/json, got %q", cfg.Logging.Format)
	}

	return nil
}
