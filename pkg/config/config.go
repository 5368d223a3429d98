// Package config loads the optional project file that tunes tag matching:
// which dialect applies to which paths, how soft mismatches are shown, and
// which files a workspace scan includes. YAML and HCL are both accepted.
package config

import (
	"bytes"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/finder"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

// FileNames are the config files looked up in a project root, in order.
var FileNames = []string{".tagmatch.yaml", ".tagmatch.yml", ".tagmatch.hcl"}

var ErrInvalid = errors.Base("invalid config")

type Config struct {
	Dialects         []*DialectRule `json:"dialects,omitempty" yaml:"dialects,omitempty" hcl:"dialect,block"`
	MismatchPolicy   string         `json:"mismatch_policy,omitempty" yaml:"mismatch_policy,omitempty" hcl:"mismatch_policy,optional"`
	MatchClosingTags *bool          `json:"match_closing_tags,omitempty" yaml:"match_closing_tags,omitempty" hcl:"match_closing_tags,optional"`
	Include          []string       `json:"include,omitempty" yaml:"include,omitempty" hcl:"include,optional"`
	LogLevel         string         `json:"log_level,omitempty" yaml:"log_level,omitempty" hcl:"log_level,optional"`
}

// DialectRule assigns a dialect to paths matching any of its patterns.
type DialectRule struct {
	Name     string   `json:"name" yaml:"name" hcl:"name,label"`
	Patterns []string `json:"patterns" yaml:"patterns" hcl:"patterns,attr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		MismatchPolicy: tagmatch.PolicyReport.String(),
		Include:        slices.Clone(finder.DefaultPatterns),
		LogLevel:       zerolog.InfoLevel.String(),
	}
}

// Load reads a config file from fsys. Files ending in .yaml or .yml are YAML,
// anything else is HCL. Unset fields keep their defaults.
func Load(fsys afero.Fs, name string) (*Config, error) {
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	default:
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, name)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}
		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{},
		}
		if diags := gohcl.DecodeBody(file.Body, ctx, cfg); diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.MismatchPolicy == "" {
		c.MismatchPolicy = def.MismatchPolicy
	}
	if c.Include == nil {
		c.Include = def.Include
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Find loads the first of FileNames present in dir, or Default when there is
// none.
func Find(fsys afero.Fs, dir string) (*Config, string, error) {
	for _, n := range FileNames {
		p := filepath.Join(dir, n)
		ok, err := afero.Exists(fsys, p)
		if err != nil {
			return nil, "", errors.Errorf("checking %s: %w", p, err)
		}
		if !ok {
			continue
		}
		cfg, err := Load(fsys, p)
		if err != nil {
			return nil, p, err
		}
		return cfg, p, nil
	}
	return Default(), "", nil
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	for i, rule := range c.Dialects {
		if rule == nil {
			result = multierror.Append(result, errors.Errorf("dialect rule %d is empty: %w", i, ErrInvalid))
			continue
		}
		if _, err := dialect.Lookup(rule.Name); err != nil {
			result = multierror.Append(result, errors.Errorf("dialect rule %d: %w", i, err))
		}
		if len(rule.Patterns) == 0 {
			result = multierror.Append(result, errors.Errorf("dialect rule %d (%s) has no patterns: %w", i, rule.Name, ErrInvalid))
		}
		for _, p := range rule.Patterns {
			if !doublestar.ValidatePattern(p) {
				result = multierror.Append(result, errors.Errorf("dialect rule %d: bad pattern %q: %w", i, p, ErrInvalid))
			}
		}
	}

	for _, p := range c.Include {
		if !doublestar.ValidatePattern(p) {
			result = multierror.Append(result, errors.Errorf("include: bad pattern %q: %w", p, ErrInvalid))
		}
	}

	if _, err := tagmatch.ParsePolicy(c.MismatchPolicy); err != nil {
		result = multierror.Append(result, err)
	}

	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			result = multierror.Append(result, errors.Errorf("log_level %q: %w", c.LogLevel, ErrInvalid))
		}
	}

	return result.ErrorOrNil()
}

// DialectFor returns the dialect of the first rule matching p, falling back
// to the file extension.
func (c *Config) DialectFor(p string) dialect.Dialect {
	slashed := filepath.ToSlash(p)
	for _, rule := range c.Dialects {
		if rule == nil {
			continue
		}
		for _, pattern := range rule.Patterns {
			if matchPath(pattern, slashed) {
				if d, err := dialect.Lookup(rule.Name); err == nil {
					return d
				}
			}
		}
	}
	return dialect.ForPath(p)
}

// Includes reports whether a workspace scan should pick up p.
func (c *Config) Includes(p string) bool {
	if len(c.Include) == 0 {
		return true
	}
	slashed := filepath.ToSlash(p)
	for _, pattern := range c.Include {
		if matchPath(pattern, slashed) {
			return true
		}
	}
	return false
}

func (c *Config) Policy() tagmatch.MismatchPolicy {
	p, err := tagmatch.ParsePolicy(c.MismatchPolicy)
	if err != nil {
		return tagmatch.PolicyReport
	}
	return p
}

func (c *Config) ClosingTags() bool {
	return c.MatchClosingTags == nil || *c.MatchClosingTags
}

// LocatorOptions turns the matching settings into locator options.
func (c *Config) LocatorOptions() []tagmatch.Option {
	return []tagmatch.Option{
		tagmatch.WithPolicy(c.Policy()),
		tagmatch.WithClosingTags(c.ClosingTags()),
	}
}

func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// matchPath matches absolute and relative paths alike: a pattern without a
// leading slash may match any suffix of the path's directories.
func matchPath(pattern, p string) bool {
	if ok, _ := doublestar.Match(pattern, p); ok {
		return true
	}
	if strings.HasPrefix(pattern, "/") {
		return false
	}
	for p != "" {
		i := strings.IndexByte(p, '/')
		if i < 0 {
			break
		}
		p = p[i+1:]
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
