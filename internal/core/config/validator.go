package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateRegistry(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Registry.Manifests))
	for i, manifest := range cfg.Registry.Manifests {
		if manifest == "" {
			return fmt.Errorf("registry.manifests[%d] must not be empty", i)
		}
		if seen[manifest] {
			return fmt.Errorf("registry.manifests[%d] duplicates %q", i, manifest)
		}
		seen[manifest] = true
	}
	if !cfg.Registry.BuiltinEnabled() && len(cfg.Registry.Manifests) == 0 {
		return fmt.Errorf("registry.include_builtin is false and no manifests are configured")
	}
	return nil
}

func validateValidator(cfg *Config) error {
	if cfg.Validator.PoolSize > 1024 {
		return fmt.Errorf("validator.pool_size must be <= 1024, got %d", cfg.Validator.PoolSize)
	}
	for i, code := range cfg.Validator.Suppress {
		if code <= 0 {
			return fmt.Errorf("validator.suppress[%d] must be a positive diagnostic code, got %d", i, code)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.Rate < 0 {
		return fmt.Errorf("watch.rate must not be negative")
	}
	for field, patterns := range map[string][]string{
		"watch.exclude_dirs":  cfg.Watch.ExcludeDirs,
		"watch.exclude_files": cfg.Watch.ExcludeFiles,
	} {
		for i, pattern := range patterns {
			if strings.TrimSpace(pattern) == "" {
				return fmt.Errorf("%s[%d] must not be empty", field, i)
			}
			if _, err := glob.Compile(pattern); err != nil {
				return fmt.Errorf("%s[%d] is not a valid glob %q: %w", field, i, pattern, err)
			}
		}
	}
	return nil
}

func validateSecrets(cfg *Config) error {
	if cfg.Secrets.EntropyThreshold < 0 {
		return fmt.Errorf("secrets.entropy_threshold must not be negative")
	}
	if cfg.Secrets.MinTokenLength < 0 {
		return fmt.Errorf("secrets.min_token_length must not be negative")
	}
	seen := make(map[string]bool, len(cfg.Secrets.Patterns))
	for i, pattern := range cfg.Secrets.Patterns {
		name := strings.TrimSpace(pattern.Name)
		if name == "" {
			return fmt.Errorf("secrets.patterns[%d].name must not be empty", i)
		}
		if seen[name] {
			return fmt.Errorf("secrets.patterns[%d] duplicates pattern %q", i, name)
		}
		seen[name] = true
		if _, err := regexp.Compile(pattern.Regex); err != nil || strings.TrimSpace(pattern.Regex) == "" {
			return fmt.Errorf("secrets.patterns[%d].regex is not a valid expression %q", i, pattern.Regex)
		}
		switch strings.ToLower(strings.TrimSpace(pattern.Severity)) {
		case "", "low", "medium", "high", "critical":
		default:
			return fmt.Errorf("secrets.patterns[%d].severity must be one of: low, medium, high, critical", i)
		}
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}
