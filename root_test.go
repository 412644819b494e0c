package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/followgc/followgc/internal/config"
)

func TestNewRootCmdRegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	want := []string{
		"preview", "export", "sweep", "dryrun", "history", "undo",
		"list", "exclude", "import", "filter", "suggest", "serve",
	}

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range want {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}

func TestBuildLoggerLevels(t *testing.T) {
	oldVerbose := flagVerbose
	oldQuiet := flagQuiet

	t.Cleanup(func() {
		flagVerbose = oldVerbose
		flagQuiet = oldQuiet
	})

	flagVerbose = false
	flagQuiet = false

	cfg := config.DefaultConfig()
	cfg.Logging.Format = "json"

	logger := buildLogger(cfg)
	require.NotNil(t, logger)

	// --verbose wins over the config baseline.
	flagVerbose = true
	assert.NotNil(t, buildLogger(cfg))

	// --quiet wins over --verbose being absent.
	flagVerbose = false
	flagQuiet = true
	assert.NotNil(t, buildLogger(cfg))
}

func TestMustCLIContextPanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() {
		mustCLIContext(t.Context())
	})
}
