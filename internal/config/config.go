// Package config holds the site configuration read by the documentation builder.
//
// The configuration is plain data: literal defaults, optionally overlaid by a
// conf.yaml file in the project source directory. Checking the values against
// the installed themes and extensions is the builder's job, not this package's.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ParserKind names the parser used for a source suffix.
type ParserKind string

const (
	ParserRestructuredText ParserKind = "restructuredtext"
	ParserMarkdown         ParserKind = "markdown"
)

// ConfigFileNames are looked up, in order, by Discover.
var ConfigFileNames = []string{"conf.yaml", "conf.yml"}

// ErrUnknownParser is returned by ParseParserKind.
var ErrUnknownParser = errors.New("unknown parser kind")

// ParseParserKind maps a parser name to a ParserKind.
func ParseParserKind(s string) (ParserKind, error) {
	switch ParserKind(s) {
	case ParserRestructuredText, ParserMarkdown:
		return ParserKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownParser, s)
}

// SiteConfig is the set of named settings controlling how a documentation
// site is rendered. The yaml tags are the setting names the builder expects.
type SiteConfig struct {
	Project          string                `yaml:"project"`
	Copyright        string                `yaml:"copyright"`
	Author           string                `yaml:"author"`
	Extensions       []string              `yaml:"extensions"`
	SourceSuffix     map[string]ParserKind `yaml:"source_suffix"`
	TemplatesPath    []string              `yaml:"templates_path"`
	ExcludePatterns  []string              `yaml:"exclude_patterns"`
	HTMLTheme        string                `yaml:"html_theme"`
	HTMLThemeOptions map[string]any        `yaml:"html_theme_options"`
	HTMLStaticPath   []string              `yaml:"html_static_path"`
	HTMLCSSFiles     []string              `yaml:"html_css_files"`
	HTMLJSFiles      []string              `yaml:"html_js_files"`
}

// fileConfig mirrors SiteConfig with nil-able fields so a conf.yaml only
// replaces the settings it actually names.
type fileConfig struct {
	Project          *string               `yaml:"project"`
	Copyright        *string               `yaml:"copyright"`
	Author           *string               `yaml:"author"`
	Extensions       []string              `yaml:"extensions"`
	SourceSuffix     map[string]ParserKind `yaml:"source_suffix"`
	TemplatesPath    []string              `yaml:"templates_path"`
	ExcludePatterns  []string              `yaml:"exclude_patterns"`
	HTMLTheme        *string               `yaml:"html_theme"`
	HTMLThemeOptions map[string]any        `yaml:"html_theme_options"`
	HTMLStaticPath   []string              `yaml:"html_static_path"`
	HTMLCSSFiles     []string              `yaml:"html_css_files"`
	HTMLJSFiles      []string              `yaml:"html_js_files"`
}

// Default returns the literal project configuration. Every call builds a
// fresh value, so callers may modify the result freely.
func Default() SiteConfig {
	return SiteConfig{
		Project:   "Data and AI Handbook",
		Copyright: "2025, iSigma",
		Author:    "Chanaka S. Rupasinghe and Dinesh S. Gamage",
		Extensions: []string{
			"myst_parser",         // Markdown support
			"sphinx.ext.mathjax",  // MathJax for equations
			"sphinx.ext.autodoc",  // API docs from docstrings
			"sphinx.ext.napoleon", // Google-style docstrings
		},
		SourceSuffix: map[string]ParserKind{
			".rst": ParserRestructuredText,
			".md":  ParserMarkdown,
		},
		TemplatesPath:   []string{"_templates"},
		ExcludePatterns: []string{},
		HTMLTheme:       "sphinx_book_theme",
		HTMLThemeOptions: map[string]any{
			"repository_url":        "https://github.com/iSigma/dataaihandbook",
			"repository_branch":     "main",
			"use_repository_button": true,
			"use_edit_page_button":  true,
			"use_issues_button":     true,
			"use_fullscreen_button": true,
			"collapse_navigation":   true,
			"show_navbar_depth":     2,
			"home_page_in_toc":      true,
		},
		HTMLStaticPath: []string{"_static"},
		HTMLCSSFiles:   []string{},
		HTMLJSFiles:    []string{},
	}
}

// Parse overlays the YAML document in data on top of Default. Settings the
// document omits keep their default; settings it names replace the default
// wholesale. Unknown setting names and duplicate keys are errors.
func Parse(data []byte) (SiteConfig, error) {
	cfg := Default()

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return SiteConfig{}, err
	}

	if fc.Project != nil {
		cfg.Project = *fc.Project
	}
	if fc.Copyright != nil {
		cfg.Copyright = *fc.Copyright
	}
	if fc.Author != nil {
		cfg.Author = *fc.Author
	}
	if fc.Extensions != nil {
		cfg.Extensions = fc.Extensions
	}
	if fc.SourceSuffix != nil {
		cfg.SourceSuffix = fc.SourceSuffix
	}
	if fc.TemplatesPath != nil {
		cfg.TemplatesPath = fc.TemplatesPath
	}
	if fc.ExcludePatterns != nil {
		cfg.ExcludePatterns = fc.ExcludePatterns
	}
	if fc.HTMLTheme != nil {
		cfg.HTMLTheme = *fc.HTMLTheme
	}
	if fc.HTMLThemeOptions != nil {
		cfg.HTMLThemeOptions = fc.HTMLThemeOptions
	}
	if fc.HTMLStaticPath != nil {
		cfg.HTMLStaticPath = fc.HTMLStaticPath
	}
	if fc.HTMLCSSFiles != nil {
		cfg.HTMLCSSFiles = fc.HTMLCSSFiles
	}
	if fc.HTMLJSFiles != nil {
		cfg.HTMLJSFiles = fc.HTMLJSFiles
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("could not read config file at %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the first of ConfigFileNames found in sourceDir. When none
// exists it returns Default and an empty path.
func Discover(sourceDir string) (SiteConfig, string, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(sourceDir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return SiteConfig{}, "", err
		}
		cfg, err := Load(path)
		if err != nil {
			return SiteConfig{}, "", err
		}
		return cfg, path, nil
	}
	return Default(), "", nil
}
