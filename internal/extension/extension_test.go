package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/config"
)

func TestResolveDefaultExtensions(t *testing.T) {
	set, err := Resolve(config.Default().Extensions)
	require.NoError(t, err)

	var ids []string
	for _, ext := range set.Extensions() {
		ids = append(ids, ext.ID)
	}
	assert.Equal(t, []string{"myst_parser", "sphinx.ext.mathjax", "sphinx.ext.autodoc", "sphinx.ext.napoleon"}, ids)
	assert.True(t, set.Provides(config.ParserMarkdown))
	assert.True(t, set.Provides(config.ParserRestructuredText))
	assert.Equal(t, []string{MathJaxURL}, set.HeadScripts())
}

func TestResolveWithoutMarkdown(t *testing.T) {
	set, err := Resolve(nil)
	require.NoError(t, err)

	assert.Empty(t, set.Extensions())
	assert.True(t, set.Provides(config.ParserRestructuredText))
	assert.False(t, set.Provides(config.ParserMarkdown))
	assert.Empty(t, set.HeadScripts())
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve([]string{"myst_parser", "sphinx.ext.graphviz", "myst_parser", "nbsphinx"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownExtension)
	assert.ErrorIs(t, err, ErrDuplicateExtension)
	assert.Contains(t, err.Error(), "sphinx.ext.graphviz")
	assert.Contains(t, err.Error(), "nbsphinx")
}

func TestIDs(t *testing.T) {
	ids := IDs()
	assert.IsIncreasing(t, ids)
	for _, id := range config.Default().Extensions {
		assert.Contains(t, ids, id)
	}
}
