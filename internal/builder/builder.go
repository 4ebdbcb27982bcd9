// Package builder renders a documentation site from a project source
// directory and its site configuration.
package builder

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"folio/internal/config"
	"folio/internal/util"
)

// ErrOutputOverlapsSource is returned when the output directory is the
// source directory or one of its parents.
var ErrOutputOverlapsSource = errors.New("output directory must not be the source directory or contain it")

// BuildOptions control a single build.
type BuildOptions struct {
	SourceDir        string
	OutputDir        string
	CleanDestination bool
	Unsafe           bool
}

// Result summarises a finished build.
type Result struct {
	Pages    int
	Drafts   int
	Excluded int
	Static   int
	Warnings []string
	Snapshot string
}

// Build renders every source page of env's project into opts.OutputDir.
// ctx is checked between pages.
func Build(ctx context.Context, env *Environment, opts BuildOptions) (Result, error) {
	cfg := env.Config
	res := Result{Warnings: slices.Clone(env.Warnings)}
	for _, w := range env.Warnings {
		slog.Warn(w)
	}
	snapshot, err := cfg.Snapshot()
	if err != nil {
		return res, err
	}
	res.Snapshot = snapshot

	if err := checkOutput(opts); err != nil {
		return res, err
	}
	if err := prepareOutput(opts); err != nil {
		return res, err
	}

	var templateDirs []string
	for _, p := range cfg.TemplatesPath {
		templateDirs = append(templateDirs, filepath.Join(opts.SourceDir, filepath.FromSlash(p)))
	}
	tmpl, err := env.Theme.Templates(templateDirs...)
	if err != nil {
		return res, fmt.Errorf("failed to load templates: %w", err)
	}

	ex, err := newExcluder(cfg.ExcludePatterns, excludedDirs(opts, cfg))
	if err != nil {
		return res, err
	}
	sources, excluded, duplicates, err := collectSources(opts.SourceDir, cfg, ex)
	if err != nil {
		return res, fmt.Errorf("failed to collect sources: %w", err)
	}
	res.Excluded = excluded
	for _, w := range duplicates {
		slog.Warn(w)
	}
	res.Warnings = append(res.Warnings, duplicates...)
	slog.Debug("Collected sources", "count", len(sources), "excluded", excluded)

	r := newRenderer(cfg, opts.Unsafe)
	var pages []page
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, err := readPage(r, src)
		if err != nil {
			return res, err
		}
		if p.meta.Draft && p.slug != "index" {
			slog.Debug("Skipping draft", "path", src.Rel)
			res.Drafts++
			continue
		}
		pages = append(pages, p)
	}

	nav := buildNav(pages, env)
	site := siteInfo(cfg)
	headScripts := env.Extensions.HeadScripts()

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		baseHref := util.ComputeBaseHref(p.src.Rel)
		data := PageData{
			Content:     template.HTML(p.body),
			Title:       p.title,
			Description: p.meta.Description,
			BaseHref:    baseHref,
			SourcePath:  p.src.Rel,
			Site:        site,
			Theme:       env.Theme.Name,
			Options:     env.Options,
			Nav:         markCurrent(nav, p.slug),
			Links:       repoLinks(env.Options, p.src.Rel),
			ShowEdit:    env.Theme.ShowsEditButton(env.Options),
			CSSFiles:    assetHrefs(baseHref, cfg.HTMLCSSFiles),
			JSFiles:     assetHrefs(baseHref, cfg.HTMLJSFiles),
			HeadScripts: headScripts,
			Params:      p.meta.Params,
		}
		outPath := filepath.Join(opts.OutputDir, filepath.FromSlash(p.slug)+".html")
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return res, err
		}
		if err := renderPage(tmpl, outPath, data); err != nil {
			return res, fmt.Errorf("failed to render page %s: %w", p.src.Rel, err)
		}
		slog.Debug("Rendered page", "path", p.src.Rel, "output", outPath)
		res.Pages++
	}

	staticOut := filepath.Join(opts.OutputDir, StaticDir)
	if err := env.Theme.WriteStatic(staticOut); err != nil {
		return res, err
	}
	copied, err := copyStaticAssets(opts.SourceDir, cfg.HTMLStaticPath, staticOut)
	if err != nil {
		return res, fmt.Errorf("failed to copy static assets: %w", err)
	}
	res.Static = copied
	return res, nil
}

// checkOutput refuses an output directory that would hold the sources, so a
// clean build can never delete them.
func checkOutput(opts BuildOptions) error {
	src, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return err
	}
	if rel, err := filepath.Rel(out, src); err == nil && (rel == "." || filepath.IsLocal(rel)) {
		return fmt.Errorf("%w: output %s, source %s", ErrOutputOverlapsSource, out, src)
	}
	return nil
}

func prepareOutput(opts BuildOptions) error {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return err
	}
	if !opts.CleanDestination {
		return nil
	}
	slog.Debug("Cleaning destination directory", "path", opts.OutputDir)
	entries, err := os.ReadDir(opts.OutputDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(opts.OutputDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// excludedDirs are source-relative directories that never hold pages: the
// template and static paths, and the output directory when it sits inside
// the source tree.
func excludedDirs(opts BuildOptions, cfg config.SiteConfig) []string {
	dirs := append(append([]string(nil), cfg.TemplatesPath...), cfg.HTMLStaticPath...)
	src, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return dirs
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return dirs
	}
	if rel, err := filepath.Rel(src, out); err == nil && filepath.IsLocal(rel) {
		dirs = append(dirs, filepath.ToSlash(rel))
	}
	return dirs
}

func readPage(r *renderer, src source) (page, error) {
	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return page{}, fmt.Errorf("failed to read file %s: %w", src.Rel, err)
	}
	if !utf8.Valid(raw) {
		return page{}, fmt.Errorf("content file is not valid UTF-8: %s", src.Rel)
	}

	meta, docTitle, body, err := r.render(src, raw, util.ComputeBaseHref(src.Rel))
	if err != nil {
		return page{}, fmt.Errorf("failed to process content for %s: %w", src.Rel, err)
	}

	slug := src.slug()
	title := meta.Title
	if title == "" {
		title = docTitle
	}
	if title == "" {
		title = util.TitleFromName(path.Base(slug))
	}
	return page{src: src, slug: slug, meta: meta, title: title, body: body}, nil
}

// buildNav lists every page, the root index first and the rest by path,
// limited by the theme's depth and home-page options.
func buildNav(pages []page, env *Environment) []NavItem {
	maxDepth := 0
	if env.Theme.NavDepthOption != "" {
		maxDepth = env.Options.Int(env.Theme.NavDepthOption)
	}
	includeHome := true
	if env.Theme.HomeInTOCOption != "" {
		includeHome = env.Options.Bool(env.Theme.HomeInTOCOption)
	}

	var nav []NavItem
	for _, p := range pages {
		if p.slug == "index" && !includeHome {
			continue
		}
		depth := strings.Count(p.slug, "/") + 1
		if path.Base(p.slug) == "index" && depth > 1 {
			depth--
		}
		if maxDepth > 0 && depth > maxDepth {
			continue
		}
		nav = append(nav, NavItem{Title: p.title, Href: p.slug + ".html", Depth: depth})
	}
	slices.SortStableFunc(nav, func(a, b NavItem) int {
		switch {
		case a.Href == "index.html":
			return -1
		case b.Href == "index.html":
			return 1
		}
		return strings.Compare(a.Href, b.Href)
	})
	return nav
}

func markCurrent(nav []NavItem, slug string) []NavItem {
	out := slices.Clone(nav)
	for i := range out {
		out[i].Current = out[i].Href == slug+".html"
	}
	return out
}

// assetHrefs maps css or js file entries to hrefs relative to a page with
// the given base href. Absolute URLs pass through unchanged.
func assetHrefs(baseHref string, files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if isURL(f) {
			out = append(out, f)
			continue
		}
		out = append(out, baseHref+path.Join(StaticDir, f))
	}
	return out
}

// renderPage executes the Go template and writes the output to a file.
func renderPage(tmpl *template.Template, outPath string, data PageData) error {
	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()
	// "main" is the name of the template defined within our layout file.
	return tmpl.ExecuteTemplate(outFile, "main", data)
}
