package config

import "github.com/bobmcallan/vire-fetch/internal/common"

// DefaultURLPattern only admits plain-HTTP localhost targets.
const DefaultURLPattern = `^http://localhost(:[0-9]+)?(/.*)?$`

// DefaultAuthHeader carries the shared secret on every MCP call.
const DefaultAuthHeader = "X-Fetch-Secret"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3000,
			Host: "localhost",
		},
		Auth: AuthConfig{
			Header: DefaultAuthHeader,
		},
		Fetch: FetchConfig{
			AllowedURLPattern:         DefaultURLPattern,
			AllowedMethods:            []string{"GET"},
			AllowedToolHeaders:        []string{"accept", "accept-language", "content-type", "user-agent"},
			AllowedPassthroughHeaders: []string{},
			TimeoutSeconds:            30,
			MaxResponseSizeKB:         100,
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/vire-fetch.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
