package builder

import (
	"html/template"

	"folio/internal/config"
	"folio/internal/theme"
)

// PageMeta holds front matter. Unrecognised keys land in Params.
type PageMeta struct {
	Title       string         `yaml:"title"`
	Draft       bool           `yaml:"draft"`
	Description string         `yaml:"description"`
	Params      map[string]any `yaml:",inline"`
}

// SiteInfo is the project metadata shown on every page.
type SiteInfo struct {
	Project   string
	Copyright string
	Author    string
}

// NavItem is one entry of the sidebar navigation.
type NavItem struct {
	Title   string
	Href    string
	Depth   int
	Current bool
}

// RepoLinks are the source-repository URLs for a page. Empty fields are
// not shown.
type RepoLinks struct {
	Repository string
	Edit       string
	Issues     string
}

// PageData is the struct passed to templates.
type PageData struct {
	Content     template.HTML
	Title       string
	Description string
	BaseHref    string
	SourcePath  string
	Site        SiteInfo
	Theme       string
	Options     theme.Options
	Nav         []NavItem
	Links       RepoLinks
	ShowEdit    bool
	CSSFiles    []string
	JSFiles     []string
	HeadScripts []string
	Params      map[string]any
}

// page is a parsed source file waiting to be rendered.
type page struct {
	src   source
	slug  string
	meta  PageMeta
	title string
	body  string
}

func siteInfo(cfg config.SiteConfig) SiteInfo {
	return SiteInfo{
		Project:   cfg.Project,
		Copyright: cfg.Copyright,
		Author:    cfg.Author,
	}
}
