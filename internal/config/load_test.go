package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if !cfg.Engine.DryRun {
		t.Error("dry-run should default to enabled")
	}

	if cfg.Engine.PageSize != 100 {
		t.Errorf("page_size = %d, want 100", cfg.Engine.PageSize)
	}

	if cfg.Engine.MaxPages != 100 {
		t.Errorf("max_pages = %d, want 100", cfg.Engine.MaxPages)
	}

	if cfg.Engine.UndoWindowMinutes != 60 {
		t.Errorf("undo_window_minutes = %d, want 60", cfg.Engine.UndoWindowMinutes)
	}

	if cfg.GitHub.APIBaseURL != "https://api.github.com" {
		t.Errorf("api_base_url = %q", cfg.GitHub.APIBaseURL)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[engine]
page_size = 50
dry_run = false

[github]
token = "ghp_test"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.PageSize != 50 {
		t.Errorf("page_size = %d, want 50", cfg.Engine.PageSize)
	}

	if cfg.Engine.DryRun {
		t.Error("dry_run should be false")
	}

	// Unset keys keep defaults.
	if cfg.Engine.MaxPages != 100 {
		t.Errorf("max_pages = %d, want default 100", cfg.Engine.MaxPages)
	}

	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[engine]
page_sixe = 50
`)

	if _, err := Load(path); err == nil {
		t.Fatal("unknown key should fail")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}

	if cfg.Engine.PageSize != 100 {
		t.Errorf("expected defaults, page_size = %d", cfg.Engine.PageSize)
	}
}

func TestResolve_OverrideChain(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[github]
token = "from-file"

[engine]
dry_run = true
`)

	dryRun := false
	cfg, err := Resolve(
		EnvOverrides{Token: "from-env"},
		CLIOverrides{ConfigPath: path, DryRun: &dryRun},
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Env beats file.
	if cfg.GitHub.Token != "from-env" {
		t.Errorf("token = %q, want env override", cfg.GitHub.Token)
	}

	// CLI beats file.
	if cfg.Engine.DryRun {
		t.Error("CLI --dry-run=false should win over config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero page size", func(c *Config) { c.Engine.PageSize = 0 }, false},
		{"zero max pages", func(c *Config) { c.Engine.MaxPages = 0 }, false},
		{"zero workers", func(c *Config) { c.Engine.Workers = 0 }, false},
		{"blank exclusion list", func(c *Config) { c.Engine.ExclusionList = "  " }, false},
		{"bad base URL", func(c *Config) { c.GitHub.APIBaseURL = "api.github.com" }, false},
		{"mail enabled without to", func(c *Config) {
			c.Mail.Enabled = true
			c.Mail.SMTPAddr = "localhost:25"
		}, false},
		{"mail fully configured", func(c *Config) {
			c.Mail.Enabled = true
			c.Mail.SMTPAddr = "localhost:25"
			c.Mail.To = "ops@example.com"
		}, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantOK && err != nil {
				t.Errorf("Validate: %v", err)
			}

			if !tt.wantOK && err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}
