package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsKeys(t *testing.T) {
	settings := Default().Settings()

	for _, key := range []string{
		KeyProject, KeyCopyright, KeyAuthor, KeyExtensions, KeySourceSuffix,
		KeyTemplatesPath, KeyExcludePatterns, KeyHTMLTheme, KeyHTMLThemeOptions,
		KeyHTMLStaticPath,
	} {
		assert.Contains(t, settings, key)
	}
	assert.Equal(t, "sphinx_book_theme", settings[KeyHTMLTheme])
	assert.Equal(t, map[string]string{".rst": "restructuredtext", ".md": "markdown"}, settings[KeySourceSuffix])
}

func TestSettingsAreCopies(t *testing.T) {
	cfg := Default()
	settings := cfg.Settings()

	settings[KeyExtensions].([]string)[0] = "mutated"
	settings[KeyHTMLThemeOptions].(map[string]any)["repository_branch"] = "dev"

	assert.Equal(t, "myst_parser", cfg.Extensions[0])
	assert.Equal(t, "main", cfg.HTMLThemeOptions["repository_branch"])
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()

	clone.TemplatesPath = append(clone.TemplatesPath, "extra")
	clone.SourceSuffix[".txt"] = ParserRestructuredText
	clone.HTMLStaticPath[0] = "assets"

	assert.Equal(t, []string{"_templates"}, cfg.TemplatesPath)
	assert.NotContains(t, cfg.SourceSuffix, ".txt")
	assert.Equal(t, []string{"_static"}, cfg.HTMLStaticPath)
}

func snapshot(t *testing.T, c SiteConfig) string {
	t.Helper()
	s, err := c.Snapshot()
	require.NoError(t, err)
	require.NotEmpty(t, s)
	return s
}

func TestSnapshot(t *testing.T) {
	base := snapshot(t, Default())
	assert.Equal(t, base, snapshot(t, Default()))

	// nil and empty lists describe the same configuration
	emptied := Default()
	emptied.ExcludePatterns = nil
	assert.Equal(t, base, snapshot(t, emptied))

	changed := Default()
	changed.HTMLThemeOptions["show_navbar_depth"] = 3
	assert.NotEqual(t, base, snapshot(t, changed))

	reordered := Default()
	reordered.Extensions[0], reordered.Extensions[1] = reordered.Extensions[1], reordered.Extensions[0]
	assert.NotEqual(t, base, snapshot(t, reordered))
}

func TestSnapshotNestedOptionsWithNonStringKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
html_theme_options:
  announcement:
    1: first
    2: second
`))
	require.NoError(t, err)

	other, err := Parse([]byte(`
html_theme_options:
  announcement:
    1: first
    2: changed
`))
	require.NoError(t, err)

	assert.NotEqual(t, snapshot(t, cfg), snapshot(t, other))
}

func TestSnapshotRejectsUnencodableValue(t *testing.T) {
	cfg := Default()
	cfg.HTMLThemeOptions["ratio"] = math.NaN()

	_, err := cfg.Snapshot()
	assert.Error(t, err)
}

func TestCloneCopiesNestedOptions(t *testing.T) {
	cfg := Default()
	cfg.HTMLThemeOptions["icon_links"] = []any{map[string]any{"name": "GitHub"}}
	cfg.HTMLThemeOptions["labels"] = map[any]any{1: "one"}

	clone := cfg.Clone()
	clone.HTMLThemeOptions["icon_links"].([]any)[0].(map[string]any)["name"] = "GitLab"

	assert.Equal(t, "GitHub", cfg.HTMLThemeOptions["icon_links"].([]any)[0].(map[string]any)["name"])
	assert.Equal(t, map[string]any{"1": "one"}, clone.HTMLThemeOptions["labels"])
}
