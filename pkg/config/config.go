package config

import (
	"bytes"
	_ "embed"
	encjson "encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://schemas.esmin.dev/config.json"

// Config holds all configuration options for esmin.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// AnalysisConfig controls feature detection.
type AnalysisConfig struct {
	Target      string   `koanf:"target" toml:"target"`               // edition checked by `esmin check`
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = unlimited
	Workers     int      `koanf:"workers" toml:"workers"`             // 0 = 2 x NumCPU
	Extensions  []string `koanf:"extensions" toml:"extensions"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"` // gitignore syntax
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, yaml, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Target:      edition.ES2020.String(),
			MaxFileSize: 0,
			Workers:     0,
			Extensions:  []string{".js", ".mjs", ".cjs"},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
			},
			Dirs: []string{
				"node_modules",
				".git",
				".esmin",
				"dist",
				"build",
				"coverage",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".esmin/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// TargetEdition parses Analysis.Target.
func (c *Config) TargetEdition() (edition.Edition, error) {
	return edition.Parse(c.Analysis.Target)
}

// HasExtension reports whether path ends in one of the analysed extensions.
func (c *Config) HasExtension(path string) bool {
	return slices.Contains(c.Analysis.Extensions, strings.ToLower(filepath.Ext(path)))
}

// IsExcludedDir reports whether a directory name is listed in Exclude.Dirs.
func (c *Config) IsExcludedDir(name string) bool {
	return slices.Contains(c.Exclude.Dirs, name)
}

// listFormat renders validation failures on one line.
func listFormat(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate performs semantic checks the schema cannot express.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if _, err := c.TargetEdition(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("analysis.target: %w", err))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = multierror.Append(errs, errors.New("analysis.max_file_size must not be negative"))
	}
	if c.Analysis.Workers < 0 {
		errs = multierror.Append(errs, errors.New("analysis.workers must not be negative"))
	}
	if len(c.Analysis.Extensions) == 0 {
		errs = multierror.Append(errs, errors.New("analysis.extensions must not be empty"))
	}
	if c.Cache.TTL < 0 {
		errs = multierror.Append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = multierror.Append(errs, errors.New("cache.dir is required when the cache is enabled"))
	}
	if errs != nil {
		errs.ErrorFormat = listFormat
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

// Load loads configuration from a file, validating it against the schema.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := validateSchema(k.Raw()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateSchema checks a parsed document against the embedded schema.
// The document goes through JSON so that every parser yields the same
// value types.
func validateSchema(raw map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	data, err := encjson.Marshal(raw)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return sch.Validate(inst)
}

func compiledSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
}

// configNames are the file names searched for, in order.
var configNames = []string{
	"esmin.toml",
	"esmin.yaml",
	"esmin.yml",
	"esmin.json",
	".esmin.toml",
	".esmin.yaml",
	".esmin.yml",
	".esmin.json",
}

// LoadResult is the outcome of LoadConfig.
type LoadResult struct {
	Config *Config
	Source string // file the config came from; empty for defaults
}

type loadOptions struct {
	path string
	dir  string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads exactly this file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithSearchDir searches below dir instead of the working directory.
func WithSearchDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.dir = dir
	}
}

// LoadConfig loads an explicit file or the first config found in the
// standard locations. Without any file it returns the defaults. A file that
// exists but fails to load is an error.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dir: "."}
	for _, opt := range opts {
		opt(&o)
	}

	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	if path := Find(o.dir); path != "" {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: path}, nil
	}

	return &LoadResult{Config: DefaultConfig()}, nil
}

// Find returns the first config file in dir or dir/.esmin, or "".
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".esmin")} {
		for _, name := range configNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults.
func LoadOrDefault() *Config {
	res, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return res.Config
}
