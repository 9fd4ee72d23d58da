package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/tdewolff/htmlnorm/html"
	"gopkg.in/yaml.v3"
)

// Config is a normalization policy read from a file.
type Config struct {
	Whitespace  string              `yaml:"whitespace" toml:"whitespace" json:"whitespace" validate:"omitempty,oneof=standard conservative"`
	ClosingTags string              `yaml:"closing_tags" toml:"closing_tags" json:"closing_tags" validate:"omitempty,oneof=as-is explicit"`
	Templates   string              `yaml:"templates" toml:"templates" json:"templates" validate:"omitempty,oneof=none go asp php"`
	Exclude     map[string][]string `yaml:"exclude" toml:"exclude" json:"exclude" validate:"dive,keys,required,endkeys,dive,required"`
}

var templateDelims = map[string][2]string{
	"go":  {"{{", "}}"},
	"asp": {"<%", "%>"},
	"php": {"<?", "?>"},
}

// LoadConfig reads and validates a config file, its format is derived from the extension.
func LoadConfig(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	case ".json":
		err = json.Unmarshal(b, cfg)
	default:
		return nil, fmt.Errorf("config %s: unknown format %q", filename, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, verr := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: bad value %q", verr.Namespace(), verr.Value()))
			}
			return nil, fmt.Errorf("config %s: %s", filename, strings.Join(msgs, ", "))
		}
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return cfg, nil
}

// Apply sets the policy of o, leaving the options unset in the config untouched.
func (cfg *Config) Apply(o *html.Normalizer) {
	// values are validated
	if cfg.Whitespace != "" {
		o.Whitespace, _ = html.ParseWhitespaceMode(cfg.Whitespace)
	}
	if cfg.ClosingTags != "" {
		o.ClosingTags, _ = html.ParseClosingTagMode(cfg.ClosingTags)
	}
	if cfg.Templates != "" {
		o.TemplateDelims = templateDelims[cfg.Templates]
	}
	if 0 < len(cfg.Exclude) {
		excludes := map[string]map[string]bool{}
		for tag, attrs := range cfg.Exclude {
			tag = strings.ToLower(tag)
			if excludes[tag] == nil {
				excludes[tag] = map[string]bool{}
			}
			for _, attr := range attrs {
				excludes[tag][strings.ToLower(attr)] = true
			}
		}
		o.AttributeExcludes = mergeExcludes(o.AttributeExcludes, excludes)
	}
}
