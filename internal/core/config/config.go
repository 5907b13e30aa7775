package config

import (
	"time"
)

const DefaultFileName = "bubbleflow.toml"

type Config struct {
	Version       int           `toml:"version"`
	Registry      Registry      `toml:"registry"`
	Validator     Validator     `toml:"validator"`
	Watch         Watch         `toml:"watch"`
	Secrets       Secrets       `toml:"secrets"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
}

type Registry struct {
	// IncludeBuiltin registers the embedded core catalog before any manifest.
	IncludeBuiltin *bool    `toml:"include_builtin"`
	Manifests      []string `toml:"manifests"`
}

type Validator struct {
	PoolSize       int    `toml:"pool_size"`
	Suppress       []int  `toml:"suppress"`
	DefaultProject string `toml:"default_project"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	Rate         float64       `toml:"rate"`
	Burst        int           `toml:"burst"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
}

type Secrets struct {
	Enabled          *bool           `toml:"enabled"`
	EntropyThreshold float64         `toml:"entropy_threshold"`
	MinTokenLength   int             `toml:"min_token_length"`
	Patterns         []SecretPattern `toml:"patterns"`
}

type SecretPattern struct {
	Name     string `toml:"name"`
	Regex    string `toml:"regex"`
	Severity string `toml:"severity"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// BuiltinEnabled reports whether the embedded catalog should be loaded.
func (r Registry) BuiltinEnabled() bool {
	return r.IncludeBuiltin == nil || *r.IncludeBuiltin
}

// IsEnabled reports whether hardcoded-credential scanning runs during analysis.
func (s Secrets) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}
