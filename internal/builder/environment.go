package builder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"folio/internal/config"
	"folio/internal/extension"
	"folio/internal/theme"
)

// Environment is a site configuration checked against the installed themes
// and extensions.
type Environment struct {
	Config     config.SiteConfig
	Theme      *theme.Theme
	Options    theme.Options
	Extensions *extension.Set
	// Warnings are problems that do not fail the build.
	Warnings []string
}

// CheckEnvironment fails when cfg names a theme, extension or parser the
// build environment does not have, or a path outside the project. Every
// problem found is reported in the returned error.
func CheckEnvironment(cfg config.SiteConfig) (*Environment, error) {
	env := &Environment{Config: cfg.Clone()}
	var errs []error

	th, err := theme.Lookup(cfg.HTMLTheme)
	if err != nil {
		errs = append(errs, err)
	} else {
		env.Theme = th
		opts, warnings, err := th.ResolveOptions(cfg.HTMLThemeOptions)
		if err != nil {
			errs = append(errs, err)
		}
		env.Options = opts
		env.Warnings = append(env.Warnings, warnings...)
	}

	exts, err := extension.Resolve(cfg.Extensions)
	if err != nil {
		errs = append(errs, err)
	}
	env.Extensions = exts

	for _, suffix := range cfg.SourceSuffixes() {
		if err := checkSuffix(suffix); err != nil {
			errs = append(errs, err)
			continue
		}
		kind, err := config.ParseParserKind(string(cfg.SourceSuffix[suffix]))
		if err != nil {
			errs = append(errs, fmt.Errorf("source_suffix %q: %w", suffix, err))
			continue
		}
		if exts != nil && !exts.Provides(kind) {
			errs = append(errs, fmt.Errorf("source_suffix %q: no enabled extension provides parser %q", suffix, kind))
		}
	}

	for _, list := range []struct {
		key   string
		paths []string
	}{
		{config.KeyTemplatesPath, cfg.TemplatesPath},
		{config.KeyHTMLStaticPath, cfg.HTMLStaticPath},
		{config.KeyHTMLCSSFiles, localOnly(cfg.HTMLCSSFiles)},
		{config.KeyHTMLJSFiles, localOnly(cfg.HTMLJSFiles)},
	} {
		for _, p := range list.paths {
			if !filepath.IsLocal(filepath.FromSlash(p)) {
				errs = append(errs, fmt.Errorf("%s entry %q must be a relative path inside the project", list.key, p))
			}
		}
	}

	for _, pattern := range cfg.ExcludePatterns {
		if _, err := compileGlob(pattern); err != nil {
			errs = append(errs, fmt.Errorf("exclude_patterns entry %q: %w", pattern, err))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return env, nil
}

func checkSuffix(suffix string) error {
	if len(suffix) < 2 || !strings.HasPrefix(suffix, ".") || strings.ContainsAny(suffix, `/\`) {
		return fmt.Errorf("source_suffix key %q is not a file extension", suffix)
	}
	return nil
}

// localOnly drops absolute URLs, which css and js file lists may contain.
func localOnly(files []string) []string {
	var out []string
	for _, f := range files {
		if !isURL(f) {
			out = append(out, f)
		}
	}
	return out
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//")
}
