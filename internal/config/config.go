package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// DefaultPath is the config file read when neither --config nor CONFIG_PATH is set.
const DefaultPath = "config.json"

// DefaultProvider is the DNS provider used when the config does not name one.
const DefaultProvider = "cloudflare"

// ErrInvalid is returned for a config that is malformed or misses required fields.
var ErrInvalid = errors.New("invalid config")

// Config is one immutable snapshot of the daemon configuration. The file may
// be JSON or YAML.
type Config struct {
	SleepTimeMinutes    int      `yaml:"sleep_time_minutes"`
	ChildProcessTimeout int      `yaml:"child_process_timeout"` // minutes
	CFUserEmailAddress  string   `yaml:"cf_user_email_address"`
	CFAPIToken          string   `yaml:"cf_api_token"`
	Hostnames           []string `yaml:"hostnames"`

	Provider     string `yaml:"provider,omitempty"`
	PublicIPURL  string `yaml:"public_ip_url,omitempty"`
	CFAPIBaseURL string `yaml:"cf_api_base_url,omitempty"`
}

// Path returns the config path to use when no explicit path was given,
// honouring the CONFIG_PATH environment variable.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadFromPath reads and validates the config file at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := parse(data, true)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a config snapshot, as written by Encode, from r. Environment
// references were already expanded when the snapshot was taken.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config snapshot: %w", err)
	}
	return parse(data, false)
}

// Encode writes the config as a snapshot that Decode can read back.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config snapshot: %w", err)
	}
	return enc.Close()
}

func parse(data []byte, expandEnv bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if expandEnv {
		// Expand ${ENV_VAR} references in credentials.
		cfg.CFAPIToken = os.ExpandEnv(cfg.CFAPIToken)
		cfg.CFUserEmailAddress = os.ExpandEnv(cfg.CFUserEmailAddress)
	}

	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	switch {
	case c.ChildProcessTimeout <= 0:
		return fmt.Errorf("%w: child_process_timeout must be a positive number of minutes", ErrInvalid)
	case c.SleepTimeMinutes < 0:
		return fmt.Errorf("%w: sleep_time_minutes must not be negative", ErrInvalid)
	case c.CFAPIToken == "":
		return fmt.Errorf("%w: missing required field 'cf_api_token'", ErrInvalid)
	case len(c.Hostnames) == 0:
		return fmt.Errorf("%w: no hostnames configured", ErrInvalid)
	}
	for i, h := range c.Hostnames {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("%w: hostnames[%d] is empty", ErrInvalid, i)
		}
	}
	return nil
}

// SleepInterval is the pause between two cycles.
func (c *Config) SleepInterval() time.Duration {
	return time.Duration(c.SleepTimeMinutes) * time.Minute
}

// JobTimeout bounds the wall-clock duration of one job.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.ChildProcessTimeout) * time.Minute
}

// ProviderSettings returns the provider-specific settings derived from the config.
func (c *Config) ProviderSettings() map[string]string {
	return map[string]string{
		"api_token": c.CFAPIToken,
		"email":     c.CFUserEmailAddress,
		"base_url":  c.CFAPIBaseURL,
	}
}
