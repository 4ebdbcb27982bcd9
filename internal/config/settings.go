package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Setting names, as read by the builder.
const (
	KeyProject          = "project"
	KeyCopyright        = "copyright"
	KeyAuthor           = "author"
	KeyExtensions       = "extensions"
	KeySourceSuffix     = "source_suffix"
	KeyTemplatesPath    = "templates_path"
	KeyExcludePatterns  = "exclude_patterns"
	KeyHTMLTheme        = "html_theme"
	KeyHTMLThemeOptions = "html_theme_options"
	KeyHTMLStaticPath   = "html_static_path"
	KeyHTMLCSSFiles     = "html_css_files"
	KeyHTMLJSFiles      = "html_js_files"
)

// Settings returns the configuration as a mapping keyed by setting name.
// The returned values are copies; changing them does not affect c.
func (c SiteConfig) Settings() map[string]any {
	suffixes := make(map[string]string, len(c.SourceSuffix))
	for ext, kind := range c.SourceSuffix {
		suffixes[ext] = string(kind)
	}
	return map[string]any{
		KeyProject:          c.Project,
		KeyCopyright:        c.Copyright,
		KeyAuthor:           c.Author,
		KeyExtensions:       cloneStrings(c.Extensions),
		KeySourceSuffix:     suffixes,
		KeyTemplatesPath:    cloneStrings(c.TemplatesPath),
		KeyExcludePatterns:  cloneStrings(c.ExcludePatterns),
		KeyHTMLTheme:        c.HTMLTheme,
		KeyHTMLThemeOptions: cloneOptions(c.HTMLThemeOptions),
		KeyHTMLStaticPath:   cloneStrings(c.HTMLStaticPath),
		KeyHTMLCSSFiles:     cloneStrings(c.HTMLCSSFiles),
		KeyHTMLJSFiles:      cloneStrings(c.HTMLJSFiles),
	}
}

// SourceSuffixes returns the recognised source suffixes in sorted order.
func (c SiteConfig) SourceSuffixes() []string {
	var keys []string
	for k := range c.SourceSuffix {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ParserFor reports the parser kind mapped to suffix.
func (c SiteConfig) ParserFor(suffix string) (ParserKind, bool) {
	kind, ok := c.SourceSuffix[suffix]
	return kind, ok
}

// Clone returns a deep copy of c, including nested theme option values.
func (c SiteConfig) Clone() SiteConfig {
	out := c
	out.Extensions = cloneStrings(c.Extensions)
	out.SourceSuffix = maps.Clone(c.SourceSuffix)
	out.TemplatesPath = cloneStrings(c.TemplatesPath)
	out.ExcludePatterns = cloneStrings(c.ExcludePatterns)
	out.HTMLThemeOptions = cloneOptions(c.HTMLThemeOptions)
	out.HTMLStaticPath = cloneStrings(c.HTMLStaticPath)
	out.HTMLCSSFiles = cloneStrings(c.HTMLCSSFiles)
	out.HTMLJSFiles = cloneStrings(c.HTMLJSFiles)
	return out
}

// Snapshot returns a stable hash over every setting. Two configurations with
// the same settings produce the same snapshot. Map keys are hashed in sorted
// order; list order is significant. It fails only for values JSON cannot
// represent, such as a NaN theme option.
func (c SiteConfig) Snapshot() (string, error) {
	data, err := json.Marshal(c.Settings())
	if err != nil {
		return "", fmt.Errorf("snapshot settings: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// cloneOptions deep-copies theme options. Nested mappings decoded by YAML
// with non-string keys become map[string]any keyed by the formatted key.
func cloneOptions(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneOptions(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(v)
	}
	return v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
