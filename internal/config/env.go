package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig = "FOLLOWGC_CONFIG"
	EnvToken  = "FOLLOWGC_TOKEN" //nolint:gosec // variable name, not a credential
	EnvDBPath = "FOLLOWGC_DB"
)

// EnvOverrides holds values derived from environment variables.
// These are resolved by ReadEnvOverrides and applied by Resolve.
type EnvOverrides struct {
	ConfigPath string // FOLLOWGC_CONFIG: override config file path
	Token      string // FOLLOWGC_TOKEN: GitHub personal access token
	DBPath     string // FOLLOWGC_DB: state database path
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Token:      os.Getenv(EnvToken),
		DBPath:     os.Getenv(EnvDBPath),
	}
}
