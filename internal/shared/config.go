package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// APIKeyEnv overrides credentials.api_key when set.
const APIKeyEnv = "LQX_API_KEY"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Sync        SyncConfig        `toml:"sync"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains the platform API key or the path to a file holding it.
type CredentialsConfig struct {
	APIKey  string `toml:"api_key"`
	KeyFile string `toml:"key_file"`
}

// APIConfig contains settings for the request executor.
type APIConfig struct {
	BaseURL           string   `toml:"base_url"`
	WebURL            string   `toml:"web_url"`
	Language          string   `toml:"language"`
	MaxRetries        int      `toml:"max_retries"`
	BaseDelay         Duration `toml:"base_delay"`
	RateLimitDelay    Duration `toml:"rate_limit_delay"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
	PageSize          int      `toml:"page_size"`
}

// SyncConfig contains orchestrator and pairing settings.
type SyncConfig struct {
	Concurrency    int      `toml:"concurrency"`
	FuzzyThreshold int      `toml:"fuzzy_threshold"`
	Strategy       string   `toml:"strategy"`
	TextExts       []string `toml:"text_exts"`
	AudioExts      []string `toml:"audio_exts"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Duration is a [time.Duration] that decodes from TOML strings like "1s" or "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that numeric settings are usable.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	case c.API.Language == "":
		return fmt.Errorf("%w: api.language is required", ErrInvalidConfig)
	case c.API.MaxRetries < 1:
		return fmt.Errorf("%w: api.max_retries must be at least 1", ErrInvalidConfig)
	case c.API.PageSize < 1:
		return fmt.Errorf("%w: api.page_size must be at least 1", ErrInvalidConfig)
	case c.Sync.Concurrency < 1:
		return fmt.Errorf("%w: sync.concurrency must be at least 1", ErrInvalidConfig)
	case c.Sync.FuzzyThreshold < 0:
		return fmt.Errorf("%w: sync.fuzzy_threshold must not be negative", ErrInvalidConfig)
	}
	return nil
}

// APIKey resolves the API key from the environment, the config value, or the key file, in that order.
//
// A missing key is reported as [ErrMissingCredentials] so callers can fail at startup.
func (c *Config) APIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(c.Credentials.APIKey); key != "" {
		return key, nil
	}
	if c.Credentials.KeyFile == "" {
		return "", fmt.Errorf("%w: set credentials.api_key, credentials.key_file or %s", ErrMissingCredentials, APIKeyEnv)
	}

	path, err := ExpandHome(c.Credentials.KeyFile)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read key file %s: %v", ErrMissingCredentials, path, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%w: key file %s is empty", ErrMissingCredentials, path)
	}
	return key, nil
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
