package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultSuppressedCodes are diagnostic codes treated as expected noise in
// generated or partially edited flows.
var DefaultSuppressedCodes = []int{6133, 6192}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	resolveRelativePaths(&cfg, filepath.Dir(path))

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateRegistry(&cfg); err != nil {
		return nil, err
	}
	if err := validateValidator(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateSecrets(&cfg); err != nil {
		return nil, err
	}
	if err := validateLog(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig
// otherwise. Decode and validation errors are still returned.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Validator.PoolSize <= 0 {
		cfg.Validator.PoolSize = 8
	}
	if cfg.Validator.Suppress == nil {
		cfg.Validator.Suppress = append([]int(nil), DefaultSuppressedCodes...)
	}
	cfg.Validator.DefaultProject = strings.TrimSpace(cfg.Validator.DefaultProject)

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.Rate == 0 {
		cfg.Watch.Rate = 4
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 2
	}
	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = []string{".git", "node_modules", "dist"}
	}

	if cfg.Secrets.EntropyThreshold == 0 {
		cfg.Secrets.EntropyThreshold = 4.0
	}
	if cfg.Secrets.MinTokenLength == 0 {
		cfg.Secrets.MinTokenLength = 20
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "bubbleflow"
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// resolveRelativePaths anchors manifest and project paths at the config file's directory.
func resolveRelativePaths(cfg *Config, base string) {
	for i, manifest := range cfg.Registry.Manifests {
		manifest = strings.TrimSpace(manifest)
		if manifest != "" && !filepath.IsAbs(manifest) {
			manifest = filepath.Join(base, manifest)
		}
		cfg.Registry.Manifests[i] = manifest
	}
	if p := cfg.Validator.DefaultProject; p != "" && !filepath.IsAbs(p) {
		cfg.Validator.DefaultProject = filepath.Join(base, p)
	}
}
