// Package scaffold creates new documentation projects and pages.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"folio/internal/config"
	"folio/internal/util"
)

var (
	// ErrProjectExists is returned when any file the project would create
	// is already present.
	ErrProjectExists = errors.New("project already exists")
	// ErrPageExists is returned rather than overwriting a page.
	ErrPageExists = errors.New("page already exists")
)

// CreateProject lays out a new project in dir. An empty project keeps the
// default project name.
func CreateProject(dir, project string) error {
	cfg := config.Default()
	if project != "" {
		cfg.Project = project
	}
	conf, err := marshalConfig(cfg)
	if err != nil {
		return err
	}

	index, err := execute(indexTemplate, cfg.Project)
	if err != nil {
		return err
	}

	files := []struct {
		path    string
		content []byte
	}{
		{config.ConfigFileNames[0], conf},
		{"index.rst", index},
		{"intro.md", []byte(introContent)},
		{"_static/custom.css", []byte(customCSSContent)},
		{"_templates/.gitkeep", nil},
	}
	// nothing is written unless every target is free
	existing := append([]string(nil), config.ConfigFileNames...)
	for _, f := range files {
		existing = append(existing, f.path)
	}
	for _, name := range existing {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Lstat(p); err == nil {
			return fmt.Errorf("%w: %s", ErrProjectExists, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f.path))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, f.content, 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", p, err)
		}
	}
	slog.Info("Project created", "dir", dir, "project", cfg.Project)
	return nil
}

func marshalConfig(cfg config.SiteConfig) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Site configuration. Settings left out keep their defaults.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CreatePage writes a new page titled title under section of sourceDir and
// returns its path. kind picks the archetype; the file suffix is the first
// configured suffix for that parser kind.
func CreatePage(sourceDir, section, title string, kind config.ParserKind) (string, error) {
	slug := util.Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("title %q has no usable characters", title)
	}
	if section != "" && !filepath.IsLocal(section) {
		return "", fmt.Errorf("section %q must be a relative path inside the project", section)
	}

	cfg, _, err := config.Discover(sourceDir)
	if err != nil {
		return "", err
	}
	suffix := ""
	for _, s := range cfg.SourceSuffixes() {
		if p, _ := cfg.ParserFor(s); p == kind {
			suffix = s
			break
		}
	}
	if suffix == "" {
		return "", fmt.Errorf("no source_suffix is mapped to parser %q", kind)
	}

	var archetype *template.Template
	switch kind {
	case config.ParserMarkdown:
		archetype = markdownArchetype
	case config.ParserRestructuredText:
		archetype = rstArchetype
	default:
		return "", fmt.Errorf("%w: %q", config.ErrUnknownParser, kind)
	}

	out := filepath.Join(sourceDir, filepath.FromSlash(section), slug+suffix)
	if _, err := os.Stat(out); err == nil {
		return "", fmt.Errorf("%w: %s", ErrPageExists, out)
	}
	content, err := execute(archetype, pageData{
		Title:     title,
		Author:    cfg.Author,
		Underline: strings.Repeat("=", utf8.RuneCountInString(title)),
	})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(out, content, 0644); err != nil {
		return "", err
	}
	slog.Info("Page created", "path", out)
	return out, nil
}

type pageData struct {
	Title     string
	Author    string
	Underline string
}

func execute(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute %s template: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"underline": func(s string) string { return strings.Repeat("=", utf8.RuneCountInString(s)) },
}).Parse(`{{ underline . }}
{{ . }}
{{ underline . }}

Welcome to the {{ . }}.

.. toctree::
   :maxdepth: 2

   intro

Start with :doc:` + "`intro`" + `.
`))

var markdownArchetype = template.Must(template.New("markdown").Parse(`---
title: {{ printf "%q" .Title }}
author: {{ printf "%q" .Author }}
description: ""
---

# {{ .Title }}

Write something meaningful here.
`))

var rstArchetype = template.Must(template.New("rst").Parse(`:author: {{ .Author }}
:description:

{{ .Title }}
{{ .Underline }}

Write something meaningful here.
`))

const introContent = `# Introduction

This page is written in Markdown. Pages can mix reStructuredText and
Markdown; both are listed in ` + "`source_suffix`" + ` in conf.yaml.

Inline math such as $e^{i\pi} + 1 = 0$ is rendered by MathJax.
`

const customCSSContent = `/* Project styles. List this file in html_css_files to load it. */
`
