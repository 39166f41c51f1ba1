// Package config loads and writes tagsync.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/tagsync/pkg/header"
)

const (
	// FileName is the config file name without extension.
	FileName = "tagsync"
	// EnvPrefix prefixes environment variable overrides (TAGSYNC_HEADER, TAGSYNC_TAG_MATCH, ...).
	EnvPrefix = "TAGSYNC"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents tagsync.yaml.
type Config struct {
	Header  string        `mapstructure:"header" yaml:"header" json:"header"`
	Repo    string        `mapstructure:"repo" yaml:"repo" json:"repo"`
	Project string        `mapstructure:"project" yaml:"project,omitempty" json:"project,omitempty"`
	Match   string        `mapstructure:"match" yaml:"match" json:"match"`
	Strict  bool          `mapstructure:"strict" yaml:"strict" json:"strict"`
	Macros  header.Macros `mapstructure:"macros" yaml:"macros" json:"macros"`
	Tag     TagConfig     `mapstructure:"tag" yaml:"tag" json:"tag"`
}

// TagConfig controls how the tag is looked up and parsed.
type TagConfig struct {
	Match      string `mapstructure:"match" yaml:"match,omitempty" json:"match,omitempty"`
	TrimPrefix string `mapstructure:"trim_prefix" yaml:"trim_prefix,omitempty" json:"trim_prefix,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Header: "version.h",
		Repo:   ".",
		Match:  string(header.MatchToken),
		Macros: header.DefaultMacros(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Header) == "" {
		return fmt.Errorf("%w: header path is required", ErrInvalidConfig)
	}
	if !header.IsValidMatchMode(c.Match) {
		return fmt.Errorf("%w: match must be one of %s, got %q",
			ErrInvalidConfig, strings.Join(header.MatchModes(), ", "), c.Match)
	}
	if err := c.Macros.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Resolve makes Header and Repo absolute, relative to base.
func (c *Config) Resolve(base string) error {
	var err error
	if !filepath.IsAbs(c.Header) {
		c.Header = filepath.Join(base, c.Header)
	}
	if c.Repo == "" {
		c.Repo = filepath.Dir(c.Header)
	} else if !filepath.IsAbs(c.Repo) {
		c.Repo = filepath.Join(base, c.Repo)
	}
	c.Header, err = filepath.Abs(c.Header)
	if err != nil {
		return err
	}
	c.Repo, err = filepath.Abs(c.Repo)
	return err
}

// MatchMode returns the configured match mode.
func (c *Config) MatchMode() header.MatchMode {
	return header.MatchMode(c.Match)
}

// LoadOptions configures Load.
type LoadOptions struct {
	Dir    string         // directory searched for tagsync.yaml (default: current directory)
	File   string         // explicit config file; must exist when set
	Flags  *pflag.FlagSet // flags overriding file and environment values
	NoFile bool           // skip the config file; defaults, environment and flags only
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"header":      "header",
	"repo":        "repo",
	"project":     "project",
	"match":       "match",
	"strict":      "strict",
	"tag-match":   "tag.match",
	"trim-prefix": "tag.trim_prefix",
}

// Load reads the config with precedence flags > environment > file > defaults.
// It returns the config and the path of the file used, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("header", def.Header)
	v.SetDefault("repo", def.Repo)
	v.SetDefault("project", def.Project)
	v.SetDefault("match", def.Match)
	v.SetDefault("strict", def.Strict)
	v.SetDefault("macros.major", def.Macros.Major)
	v.SetDefault("macros.minor", def.Macros.Minor)
	v.SetDefault("macros.patch", def.Macros.Patch)
	v.SetDefault("tag.match", def.Tag.Match)
	v.SetDefault("tag.trim_prefix", def.Tag.TrimPrefix)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	if !opts.NoFile {
		if opts.File != "" {
			v.SetConfigFile(opts.File)
		} else {
			v.SetConfigName(FileName)
			v.SetConfigType("yaml")
			v.AddConfigPath(dir)
		}

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if opts.File != "" || !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

// Marshal renders the config as YAML with a leading comment.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# tagsync configuration\n# Keeps the version macros of a C/C++ header in step with the latest git tag.\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes cfg to path.
func Write(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
