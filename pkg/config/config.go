// Package config loads hoist settings from TOML, YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for hoist.
type Config struct {
	// Rewrite rules
	MagicStrings MagicStringsConfig `koanf:"magic_strings" toml:"magic_strings"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Write-back behavior
	Rewrite RewriteConfig `koanf:"rewrite" toml:"rewrite"`
}

// MagicStringsConfig controls the solver.
type MagicStringsConfig struct {
	ScopeMode           string `koanf:"scope_mode" toml:"scope_mode"` // recursive, isolated
	EmptyStringSentinel bool   `koanf:"empty_string_sentinel" toml:"empty_string_sentinel"`
	MaxNameLength       int    `koanf:"max_name_length" toml:"max_name_length"`
	Lenient             bool   `koanf:"lenient" toml:"lenient"`
	MaxFileSize         int64  `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
	MaxWorkers          int    `koanf:"max_workers" toml:"max_workers"`     // 0 = default
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// TTLDuration returns the cache TTL as a duration.
func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Hour
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// RewriteConfig controls how results are written back.
type RewriteConfig struct {
	DryRun bool `koanf:"dry_run" toml:"dry_run"`
	// RequireClean refuses to rewrite files with uncommitted changes.
	RequireClean bool `koanf:"require_clean" toml:"require_clean"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MagicStrings: MagicStringsConfig{
			ScopeMode:           "recursive",
			EmptyStringSentinel: true,
			MaxNameLength:       30,
			MaxFileSize:         2 << 20,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.g.cs",
				"*.Designer.cs",
				"*.generated.cs",
				"*.AssemblyInfo.cs",
			},
			Dirs: []string{
				"bin",
				"obj",
				".git",
				".hoist",
				".vs",
				"packages",
				"node_modules",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".hoist/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Rewrite: RewriteConfig{
			RequireClean: true,
		},
	}
}

// parserFor picks a koanf parser from the file extension, defaulting to TOML.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// Load loads configuration from a file, layered over the defaults, and
// validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := validateSchema(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configNames are searched in order inside each of searchDirs.
var configNames = []string{
	"hoist.toml",
	"hoist.yaml",
	"hoist.yml",
	"hoist.json",
	".hoist.toml",
	".hoist.yaml",
	".hoist.yml",
	".hoist.json",
}

var searchDirs = []string{".", ".hoist"}

// Find returns the first config file present in the standard locations
// under dir, or "" when there is none.
func Find(dir string) string {
	for _, sub := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, sub, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadResult is a loaded configuration and where it came from.
type LoadResult struct {
	Config *Config
	// Source is the file the config was read from; empty for defaults.
	Source string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
	dir  string
}

// WithPath loads a specific file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithDir searches the standard locations under dir instead of the
// working directory.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.dir = dir
	}
}

// LoadConfig loads an explicit file, or the first file found in the
// standard locations, or the defaults.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dir: "."}
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = Find(o.dir)
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

// ErrInvalidConfig is wrapped by semantic validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.MagicStrings.ScopeMode {
	case "", "recursive", "isolated":
	default:
		errs = append(errs, fmt.Errorf("magic_strings.scope_mode %q: want recursive or isolated", c.MagicStrings.ScopeMode))
	}
	if c.MagicStrings.MaxNameLength < 1 {
		errs = append(errs, fmt.Errorf("magic_strings.max_name_length must be positive (got %d)", c.MagicStrings.MaxNameLength))
	}
	if c.MagicStrings.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("magic_strings.max_file_size must not be negative"))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, fmt.Errorf("cache.dir is required when the cache is enabled"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative"))
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "text", "json", "markdown", "md", "toon":
	default:
		errs = append(errs, fmt.Errorf("output.format %q: want text, json, markdown or toon", c.Output.Format))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ShouldExclude reports whether a path relative to the scan root falls in
// an excluded directory or its file name matches an exclude pattern.
// Patterns are matched against the base name only; the scanner applies
// the full gitignore syntax.
func (c *Config) ShouldExclude(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		for _, dir := range c.Exclude.Dirs {
			if part == dir {
				return true
			}
		}
	}
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
