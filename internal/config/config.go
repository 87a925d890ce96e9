package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/vire-fetch/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig         `toml:"server"`
	Auth    AuthConfig           `toml:"auth"`
	Fetch   FetchConfig          `toml:"fetch"`
	Logging common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// AuthConfig contains the shared-secret guard settings for the MCP endpoint.
type AuthConfig struct {
	Secret string `toml:"secret"`
	Header string `toml:"header"`
}

// FetchConfig contains the fetch policy. It is compiled into an immutable
// fetch.Policy once at startup.
type FetchConfig struct {
	AllowedURLPattern         string   `toml:"allowed_url_pattern"`
	AllowedMethods            []string `toml:"allowed_methods"`
	AllowedToolHeaders        []string `toml:"allowed_tool_headers"`
	AllowedPassthroughHeaders []string `toml:"allowed_passthrough_headers"`
	TimeoutSeconds            int      `toml:"timeout_seconds"`
	MaxResponseSizeKB         int      `toml:"max_response_size_kb"`
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are not overwritten. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies VIRE_FETCH_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("VIRE_FETCH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VIRE_FETCH_HOST"); host != "" {
		config.Server.Host = host
	}
	if secret := os.Getenv("VIRE_FETCH_SECRET"); secret != "" {
		config.Auth.Secret = secret
	}
	if header := os.Getenv("VIRE_FETCH_AUTH_HEADER"); header != "" {
		config.Auth.Header = header
	}
	if pattern := os.Getenv("VIRE_FETCH_ALLOWED_URL_PATTERN"); pattern != "" {
		config.Fetch.AllowedURLPattern = pattern
	}
	if methods := os.Getenv("VIRE_FETCH_ALLOWED_METHODS"); methods != "" {
		config.Fetch.AllowedMethods = splitAndTrim(methods)
	}
	if headers, ok := os.LookupEnv("VIRE_FETCH_ALLOWED_TOOL_HEADERS"); ok {
		config.Fetch.AllowedToolHeaders = splitAndTrim(headers)
	}
	if headers, ok := os.LookupEnv("VIRE_FETCH_ALLOWED_PASSTHROUGH_HEADERS"); ok {
		config.Fetch.AllowedPassthroughHeaders = splitAndTrim(headers)
	}
	if timeout := os.Getenv("VIRE_FETCH_TIMEOUT"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil {
			config.Fetch.TimeoutSeconds = n
		}
	}
	if size := os.Getenv("VIRE_FETCH_MAX_RESPONSE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			config.Fetch.MaxResponseSizeKB = n
		}
	}
	if level := os.Getenv("VIRE_FETCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, secret string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if secret != "" {
		config.Auth.Secret = secret
	}
}

// EnsureSecret fills Auth.Secret with a random value when none was configured.
// It reports whether a secret was generated so the caller can log it once.
func EnsureSecret(config *Config) (bool, error) {
	if config.Auth.Secret != "" {
		return false, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return false, fmt.Errorf("failed to generate secret: %w", err)
	}
	config.Auth.Secret = hex.EncodeToString(b)
	return true, nil
}

// Validate returns a list of human-readable configuration problems.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Auth.Header) == "" {
		issues = append(issues, "auth.header must not be empty")
	}
	if c.Fetch.AllowedURLPattern == "" {
		issues = append(issues, "fetch.allowed_url_pattern must not be empty")
	} else if _, err := regexp.Compile(c.Fetch.AllowedURLPattern); err != nil {
		issues = append(issues, fmt.Sprintf("fetch.allowed_url_pattern does not compile: %v", err))
	}
	if len(c.Fetch.AllowedMethods) == 0 {
		issues = append(issues, "fetch.allowed_methods must list at least one method")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		issues = append(issues, fmt.Sprintf("fetch.timeout_seconds must be positive, got %d", c.Fetch.TimeoutSeconds))
	}
	if c.Fetch.MaxResponseSizeKB <= 0 {
		issues = append(issues, fmt.Sprintf("fetch.max_response_size_kb must be positive, got %d", c.Fetch.MaxResponseSizeKB))
	}

	return issues
}

// Address returns the host:port the server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// splitAndTrim splits a comma-separated string and trims whitespace
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
