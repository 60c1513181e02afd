package config

const (
	defaultBackendHost          = "127.0.0.1"
	defaultBackendPort          = 8765
	defaultBackendPath          = "/"
	defaultConnectTimeout       = 5
	defaultCallTimeout          = 30
	defaultReconnectInitialMS   = 250
	defaultReconnectMultiplier  = 2.0
	defaultReconnectMaxMS       = 10000
	defaultStateDir             = "~/.local/share/vidshelf"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultJournalRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			Host:                  defaultBackendHost,
			Port:                  defaultBackendPort,
			Path:                  defaultBackendPath,
			ConnectTimeoutSeconds: defaultConnectTimeout,
			CallTimeoutSeconds:    defaultCallTimeout,
		},
		Reconnect: Reconnect{
			InitialDelayMS: defaultReconnectInitialMS,
			Multiplier:     defaultReconnectMultiplier,
			MaxDelayMS:     defaultReconnectMaxMS,
			Jitter:         true,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled:       true,
			RetentionDays: defaultJournalRetentionDays,
		},
	}
}
