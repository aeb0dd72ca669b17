package config

import "time"

// NewDiscordForTest creates a Discord config for testing purposes
func NewDiscordForTest(token, publicKey string, timeout time.Duration) *Discord {
	return &Discord{
		token:          token,
		publicKey:      publicKey,
		requestTimeout: timeout,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewAppConfigForTest creates an AppConfig pointing at path
func NewAppConfigForTest(path string) *AppConfig {
	return &AppConfig{path: path}
}
