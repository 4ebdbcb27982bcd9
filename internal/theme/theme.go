// Package theme describes the themes installed in the build environment:
// their option schemas, stylesheets and page templates.
package theme

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrUnknownTheme is returned when a theme is not installed.
var ErrUnknownTheme = errors.New("unknown theme")

// OptionKind is the value type a theme option accepts.
type OptionKind int

const (
	KindString OptionKind = iota
	KindBool
	KindInt
)

func (k OptionKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	}
	return fmt.Sprintf("OptionKind(%d)", int(k))
}

// Option declares one theme option and its default value.
type Option struct {
	Kind    OptionKind
	Default any
}

// Theme is an installed theme.
type Theme struct {
	Name    string
	Options map[string]Option

	// NavDepthOption names the int option limiting navigation depth, if any.
	NavDepthOption string
	// HomeInTOCOption names the bool option listing the root page in the
	// navigation, if any. Themes without it always list the root page.
	HomeInTOCOption string
	// EditButtonOption names the option that shows the "edit this page"
	// link. A bool option enables it; a string option enables it when set
	// to "edit".
	EditButtonOption string
}

// ShowsEditButton reports whether opts turn on the edit link.
func (t *Theme) ShowsEditButton(opts Options) bool {
	opt, ok := t.Options[t.EditButtonOption]
	if !ok {
		return false
	}
	if opt.Kind == KindBool {
		return opts.Bool(t.EditButtonOption)
	}
	return opts.Text(t.EditButtonOption) == "edit"
}

var installed = map[string]*Theme{
	"sphinx_book_theme": {
		Name: "sphinx_book_theme",
		Options: map[string]Option{
			"repository_url":        {KindString, ""},
			"repository_branch":     {KindString, "main"},
			"path_to_docs":          {KindString, ""},
			"use_repository_button": {KindBool, false},
			"use_edit_page_button":  {KindBool, false},
			"use_issues_button":     {KindBool, false},
			"use_fullscreen_button": {KindBool, true},
			"use_download_button":   {KindBool, true},
			"collapse_navigation":   {KindBool, false},
			"show_navbar_depth":     {KindInt, 1},
			"home_page_in_toc":      {KindBool, false},
			"extra_footer":          {KindString, ""},
		},
		NavDepthOption:   "show_navbar_depth",
		HomeInTOCOption:  "home_page_in_toc",
		EditButtonOption: "use_edit_page_button",
	},
	"alabaster": {
		Name: "alabaster",
		Options: map[string]Option{
			"description":   {KindString, ""},
			"github_user":   {KindString, ""},
			"github_repo":   {KindString, ""},
			"fixed_sidebar": {KindBool, false},
			"page_width":    {KindString, "940px"},
		},
	},
	"sphinx_rtd_theme": {
		Name: "sphinx_rtd_theme",
		Options: map[string]Option{
			"collapse_navigation":         {KindBool, true},
			"navigation_depth":            {KindInt, 4},
			"sticky_navigation":           {KindBool, true},
			"titles_only":                 {KindBool, false},
			"style_nav_header_background": {KindString, "#2980B9"},
		},
		NavDepthOption: "navigation_depth",
	},
	"furo": {
		Name: "furo",
		Options: map[string]Option{
			"sidebar_hide_name":    {KindBool, false},
			"navigation_with_keys": {KindBool, false},
			"top_of_page_button":   {KindString, "edit"},
			"source_repository":    {KindString, ""},
			"source_branch":        {KindString, ""},
			"source_directory":     {KindString, ""},
		},
		EditButtonOption: "top_of_page_button",
	},
}

// Lookup returns the installed theme called name.
func Lookup(name string) (*Theme, error) {
	t, ok := installed[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (installed: %v)", ErrUnknownTheme, name, Names())
	}
	return t, nil
}

// Names lists the installed themes in sorted order.
func Names() []string {
	var keys []string
	for k := range installed {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ResolveOptions checks user options against the theme's schema and fills in
// defaults. Options the theme does not declare are dropped and reported as
// warnings; a value of the wrong kind is an error.
func (t *Theme) ResolveOptions(user map[string]any) (Options, []string, error) {
	resolved := make(Options, len(t.Options))
	for name, opt := range t.Options {
		resolved[name] = opt.Default
	}

	var warnings []string
	var errs []error
	names := make([]string, 0, len(user))
	for name := range user {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		opt, ok := t.Options[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unsupported theme option %q for theme %s", name, t.Name))
			continue
		}
		v, err := coerce(opt.Kind, user[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("theme option %q: %w", name, err))
			continue
		}
		resolved[name] = v
	}
	if len(errs) > 0 {
		return nil, warnings, errors.Join(errs...)
	}
	return resolved, warnings, nil
}

func coerce(kind OptionKind, v any) (any, error) {
	switch kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case uint64:
			return int(n), nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		}
	}
	return nil, fmt.Errorf("want %s, got %T", kind, v)
}

// Options are resolved theme options.
type Options map[string]any

// Text returns the string option name, or "" when unset.
func (o Options) Text(name string) string {
	s, _ := o[name].(string)
	return s
}

// Bool returns the bool option name, or false when unset.
func (o Options) Bool(name string) bool {
	b, _ := o[name].(bool)
	return b
}

// Int returns the int option name, or 0 when unset.
func (o Options) Int(name string) int {
	n, _ := o[name].(int)
	return n
}
