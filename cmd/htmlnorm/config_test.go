package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tdewolff/htmlnorm/html"
	"github.com/tdewolff/test"
)

func writeConfig(t *testing.T, name, content string) string {
	filename := filepath.Join(t.TempDir(), name)
	test.Error(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

func TestLoadConfig(t *testing.T) {
	configs := []struct {
		name, content string
	}{
		{"htmlnorm.yaml", `
whitespace: conservative
closing_tags: explicit
templates: go
exclude:
  input: [autocomplete, tabindex]
`},
		{"htmlnorm.toml", `
whitespace = "conservative"
closing_tags = "explicit"
templates = "go"

[exclude]
input = ["autocomplete", "tabindex"]
`},
		{"htmlnorm.json", `{
	"whitespace": "conservative",
	"closing_tags": "explicit",
	"templates": "go",
	"exclude": {"input": ["autocomplete", "tabindex"]}
}`},
	}

	for _, tt := range configs {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.name, tt.content))
			test.Error(t, err)

			o := html.Normalizer{}
			cfg.Apply(&o)
			test.T(t, o.Whitespace, html.Conservative)
			test.T(t, o.ClosingTags, html.Explicit)
			test.T(t, o.TemplateDelims, [2]string{"{{", "}}"})
			test.T(t, o.AttributeExcludes, map[string]map[string]bool{
				"input": {"autocomplete": true, "tabindex": true},
			})
		})
	}
}

func TestLoadConfigPartial(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "htmlnorm.yml", "closing_tags: explicit\n"))
	test.Error(t, err)

	o := html.Normalizer{Whitespace: html.Conservative}
	cfg.Apply(&o)
	test.T(t, o.Whitespace, html.Conservative, "unset options are kept")
	test.T(t, o.ClosingTags, html.Explicit)
}

func TestLoadConfigErrors(t *testing.T) {
	configs := []struct {
		name, content string
	}{
		{"bad.yaml", "whitespace: tidy\n"},
		{"bad.toml", `closing_tags = "implicit"`},
		{"bad.json", `{"templates": "jinja"}`},
		{"empty.yaml", "exclude:\n  input: ['']\n"},
		{"syntax.json", `{"whitespace": `},
		{"config.ini", "whitespace=standard"},
	}
	for _, tt := range configs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.name, tt.content))
			test.That(t, err != nil, "config must be rejected")
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err != nil, "missing config")
}
