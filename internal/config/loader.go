package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for when no
// path is given.
const DefaultConfigFile = "config.yaml"

// ErrConfigNotFound is returned when an explicitly requested configuration
// file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load builds a Config from defaults, the configuration file and the
// environment. explicitPath may be empty, in which case FindConfigFile
// decides; running without any file is allowed. It returns the path of the
// file that was read, or "".
func Load(explicitPath string) (*Config, string, error) {
	path, err := FindConfigFile(explicitPath)
	if err != nil {
		return nil, "", err
	}

	cfg := NewConfig()
	if path != "" {
		if cfg, err = LoadFile(path); err != nil {
			return nil, "", err
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadFile reads a YAML configuration file on top of the defaults. Keys
// absent from the file keep their default values and unknown keys are
// ignored.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for config.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// A missing explicit path is an error; otherwise "" means no file was found.
func FindConfigFile(configPath string) (string, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return configPath, nil
	}

	candidates := []string{DefaultConfigFile, filepath.Join(XDGConfigDir(), DefaultConfigFile)}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

// envOverrides lists the environment variables that override the file.
// Pointer fields stay nil when the variable is unset.
type envOverrides struct {
	ProxyHost       *string `envconfig:"TOR_PROXY_HOST"`
	ProxyPort       *int    `envconfig:"TOR_PROXY_PORT"`
	ControlPort     *int    `envconfig:"TOR_CONTROL_PORT"`
	ControlPassword *string `envconfig:"TOR_CONTROL_PASSWORD"`
	StartURL        *string `envconfig:"START_URL"`
	MaxDepth        *int    `envconfig:"MAX_DEPTH"`
	MaxPages        *int    `envconfig:"MAX_PAGES"`
	LogLevel        *string `envconfig:"LOG_LEVEL"`
	PostgresDSN     *string `envconfig:"POSTGRES_DSN"`
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	setIfPresent(&cfg.Tor.ProxyHost, env.ProxyHost)
	setIfPresent(&cfg.Tor.ProxyPort, env.ProxyPort)
	setIfPresent(&cfg.Tor.ControlPort, env.ControlPort)
	setIfPresent(&cfg.Tor.ControlPassword, env.ControlPassword)
	setIfPresent(&cfg.Crawler.StartURL, env.StartURL)
	setIfPresent(&cfg.Crawler.MaxDepth, env.MaxDepth)
	setIfPresent(&cfg.Crawler.MaxPages, env.MaxPages)
	setIfPresent(&cfg.LogLevel, env.LogLevel)
	setIfPresent(&cfg.Storage.PostgresDSN, env.PostgresDSN)
	return nil
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
