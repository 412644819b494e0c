// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for followgc. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	GitHub  GitHubConfig  `toml:"github"`
	Engine  EngineConfig  `toml:"engine"`
	Storage StorageConfig `toml:"storage"`
	Mail    MailConfig    `toml:"mail"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

// GitHubConfig holds credentials and endpoints for the GitHub API.
// The token is a classic personal access token with the user:follow scope.
type GitHubConfig struct {
	Token      string `toml:"token"`
	APIBaseURL string `toml:"api_base_url"`
}

// EngineConfig controls reconciliation and bulk-action behavior.
// DryRun defaults to true so a fresh install can never mutate the remote
// follow graph by accident.
type EngineConfig struct {
	PageSize          int    `toml:"page_size"`
	MaxPages          int    `toml:"max_pages"`
	Workers           int    `toml:"workers"`
	DryRun            bool   `toml:"dry_run"`
	UndoWindowMinutes int    `toml:"undo_window_minutes"`
	ExclusionList     string `toml:"exclusion_list"`
}

// StorageConfig controls where the SQLite state database lives.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// MailConfig controls the optional sweep summary email. When Enabled is
// false (the default) no mail is sent.
type MailConfig struct {
	Enabled  bool   `toml:"enabled"`
	SMTPAddr string `toml:"smtp_addr"`
	From     string `toml:"from"`
	To       string `toml:"to"`
}

// ServerConfig controls the REST API server started by `followgc serve`.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig controls log output behavior: level and format.
// Format "auto" picks text on a terminal and JSON otherwise.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value" — this matters because
// --dry-run=false is different from not passing --dry-run at all.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	DryRun     *bool  // --dry-run flag
	Token      string // --token flag (empty = use config/env)
}
