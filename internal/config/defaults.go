package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain.
const (
	defaultAPIBaseURL        = "https://api.github.com"
	defaultPageSize          = 100
	defaultMaxPages          = 100
	defaultWorkers           = 4
	defaultUndoWindowMinutes = 60
	defaultExclusionList     = "exclude-next-run"
	defaultListenAddr        = ":8080"
	defaultMailFrom          = "followgc@localhost"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIBaseURL: defaultAPIBaseURL,
		},
		Engine: EngineConfig{
			PageSize:          defaultPageSize,
			MaxPages:          defaultMaxPages,
			Workers:           defaultWorkers,
			DryRun:            true,
			UndoWindowMinutes: defaultUndoWindowMinutes,
			ExclusionList:     defaultExclusionList,
		},
		Storage: StorageConfig{
			DBPath: DefaultDBPath(),
		},
		Mail: MailConfig{
			From: defaultMailFrom,
		},
		Server: ServerConfig{
			ListenAddr: defaultListenAddr,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
