package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/config"
	"folio/internal/extension"
)

// writeTree creates files under root; keys are slash-separated paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func handbook(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"conf.yaml": `project: Test Handbook
copyright: 2025, Example
html_css_files: [custom.css]
exclude_patterns: ["drafts/**"]
`,
		"index.rst": `Welcome
=======

Start with :doc:` + "`guide/intro`" + `.
`,
		"guide/intro.md":         "# Introduction\n\nSee [setup](setup.md).\n",
		"guide/setup.md":         "---\ntitle: Setting Up\n---\nSteps.\n",
		"guide/wip.md":           "---\ndraft: true\n---\n# Work in progress\n",
		"drafts/idea.md":         "# Idea\n",
		"notes.txt":              "not a source file\n",
		"_templates/footer.html": `{{ define "footer" }}<footer class="custom">{{ .Site.Copyright }}</footer>{{ end }}`,
		"_templates/ignored.md":  "# Not a page\n",
		"_static/custom.css":     "body { color: black; }\n",
		"_static/img/logo.svg":   "<svg/>\n",
		"_static/.hidden":        "secret\n",
		".git/HEAD":              "ref: refs/heads/main\n",
	})
	return src
}

func buildHandbook(t *testing.T, src string, opts BuildOptions) (Result, string) {
	t.Helper()
	cfg, path, err := config.Discover(src)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	env, err := CheckEnvironment(cfg)
	require.NoError(t, err)

	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(t.TempDir(), "html")
	}
	opts.SourceDir = src
	res, err := Build(context.Background(), env, opts)
	require.NoError(t, err)
	return res, opts.OutputDir
}

func TestBuildHandbook(t *testing.T) {
	src := handbook(t)
	res, out := buildHandbook(t, src, BuildOptions{CleanDestination: true})

	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 1, res.Drafts)
	assert.Equal(t, 2, res.Static)
	assert.NotEmpty(t, res.Snapshot)

	for _, f := range []string{
		"index.html",
		"guide/intro.html",
		"guide/setup.html",
		"_static/basic.css",
		"_static/sphinx_book_theme.css",
		"_static/custom.css",
		"_static/img/logo.svg",
	} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(f)))
	}
	for _, f := range []string{
		"guide/wip.html",
		"drafts/idea.html",
		"notes.html",
		"_templates/ignored.html",
		"_static/.hidden",
		"conf.html",
	} {
		assert.NoFileExists(t, filepath.Join(out, filepath.FromSlash(f)))
	}

	index := readFile(t, filepath.Join(out, "index.html"))
	assert.Contains(t, index, "<title>Welcome | Test Handbook</title>")
	assert.Contains(t, index, `<a href="guide/intro.html">guide/intro</a>`, "doc role links are relative and followable")
	assert.Contains(t, index, `<footer class="custom">2025, Example</footer>`)
	assert.Contains(t, index, `href="_static/custom.css"`)
	assert.Contains(t, index, extension.MathJaxURL)
	assert.Contains(t, index, `href="https://github.com/iSigma/dataaihandbook/edit/main/index.rst"`)
	assert.Contains(t, index, `class="theme-sphinx_book_theme"`)

	intro := readFile(t, filepath.Join(out, "guide", "intro.html"))
	assert.Contains(t, intro, "<title>Introduction | Test Handbook</title>")
	assert.Contains(t, intro, `href="../_static/basic.css"`)
	assert.Contains(t, intro, `href="../_static/custom.css"`)
	assert.Contains(t, intro, `href="setup.html"`)
	assert.Contains(t, intro, `<li class="depth-2 current"><a href="../guide/intro.html">Introduction</a></li>`)
	assert.Contains(t, intro, `<li class="depth-1"><a href="../index.html">Welcome</a></li>`)

	setup := readFile(t, filepath.Join(out, "guide", "setup.html"))
	assert.Contains(t, setup, "<title>Setting Up | Test Handbook</title>")
}

func TestBuildCleansDestination(t *testing.T) {
	src := handbook(t)
	out := filepath.Join(t.TempDir(), "html")
	writeTree(t, out, map[string]string{"stale.html": "old"})

	buildHandbook(t, src, BuildOptions{OutputDir: out})
	assert.FileExists(t, filepath.Join(out, "stale.html"))

	buildHandbook(t, src, BuildOptions{OutputDir: out, CleanDestination: true})
	assert.NoFileExists(t, filepath.Join(out, "stale.html"))
}

func TestBuildOutputInsideSource(t *testing.T) {
	src := handbook(t)
	out := filepath.Join(src, "_build", "html")

	first, _ := buildHandbook(t, src, BuildOptions{OutputDir: out})
	// rendered output must not be picked up as sources on the next build
	writeTree(t, out, map[string]string{"leftover.md": "# Leftover\n"})
	second, _ := buildHandbook(t, src, BuildOptions{OutputDir: out})

	assert.Equal(t, first.Pages, second.Pages)
	assert.NoFileExists(t, filepath.Join(out, "_build", "html", "leftover.html"))
}

func TestBuildDuplicateDocumentKeepsFirst(t *testing.T) {
	src := handbook(t)
	writeTree(t, src, map[string]string{"guide/intro.rst": "Other Intro\n===========\n"})

	res, out := buildHandbook(t, src, BuildOptions{})
	assert.Equal(t, 3, res.Pages)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1],
		`multiple files found for document "guide/intro": guide/intro.md, guide/intro.rst (using guide/intro.md)`)

	intro := readFile(t, filepath.Join(out, "guide", "intro.html"))
	assert.Contains(t, intro, "<title>Introduction | Test Handbook</title>")
	assert.NotContains(t, intro, "Other Intro")

	index := readFile(t, filepath.Join(out, "index.html"))
	assert.Equal(t, 1, strings.Count(index, `<li class="depth-2"><a href="guide/intro.html">`))
}

func TestBuildRefusesOutputOverSource(t *testing.T) {
	src := handbook(t)
	cfg, _, err := config.Discover(src)
	require.NoError(t, err)
	env, err := CheckEnvironment(cfg)
	require.NoError(t, err)

	for name, out := range map[string]string{
		"same":   src,
		"parent": filepath.Dir(src),
		"dotted": filepath.Join(src, "guide", ".."),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Build(context.Background(), env, BuildOptions{SourceDir: src, OutputDir: out, CleanDestination: true})
			assert.ErrorIs(t, err, ErrOutputOverlapsSource)
			assert.FileExists(t, filepath.Join(src, "conf.yaml"))
			assert.FileExists(t, filepath.Join(src, "guide", "intro.md"))
		})
	}
}

func TestBuildFuroEditLink(t *testing.T) {
	const edit = `href="https://github.com/org/docs/edit/main/docs/index.rst"`
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"conf.yaml": `html_theme: furo
html_theme_options:
  source_repository: https://github.com/org/docs
  source_branch: main
  source_directory: docs/
`,
		"index.md": "# Home\n",
	})
	_, out := buildHandbook(t, src, BuildOptions{})
	assert.Contains(t, readFile(t, filepath.Join(out, "index.html")), edit)

	writeTree(t, src, map[string]string{
		"conf.yaml": `html_theme: furo
html_theme_options:
  source_repository: https://github.com/org/docs
  source_branch: main
  source_directory: docs/
  top_of_page_button: ""
`,
	})
	_, out = buildHandbook(t, src, BuildOptions{})
	assert.NotContains(t, readFile(t, filepath.Join(out, "index.html")), edit)
}

func TestBuildNavigationDepth(t *testing.T) {
	src := handbook(t)
	writeTree(t, src, map[string]string{
		"conf.yaml": `project: Depth
html_theme_options:
  show_navbar_depth: 1
  home_page_in_toc: false
`,
	})
	_, out := buildHandbook(t, src, BuildOptions{})

	intro := readFile(t, filepath.Join(out, "guide", "intro.html"))
	assert.NotContains(t, intro, `<li class="depth-2`)
	assert.NotContains(t, intro, `href="../index.html">Welcome</a></li>`)
}

func TestBuildMissingStaticPathWarnsOnly(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"conf.yaml": "html_static_path: [assets]\n",
		"index.md":  "# Home\n",
	})
	res, out := buildHandbook(t, src, BuildOptions{})
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 0, res.Static)
	assert.FileExists(t, filepath.Join(out, "_static", "basic.css"))
}

func TestBuildCancelled(t *testing.T) {
	src := handbook(t)
	cfg, _, err := config.Discover(src)
	require.NoError(t, err)
	env, err := CheckEnvironment(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, env, BuildOptions{SourceDir: src, OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildInvalidUTF8(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"index.md": "\xff\xfe"})

	env, err := CheckEnvironment(config.Default())
	require.NoError(t, err)
	_, err = Build(context.Background(), env, BuildOptions{SourceDir: src, OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid UTF-8")
}

func TestRepoLinks(t *testing.T) {
	book := repoLinks(map[string]any{
		"repository_url":    "https://github.com/org/docs/",
		"repository_branch": "develop",
		"path_to_docs":      "/source/",
	}, "guide/intro.md")
	assert.Equal(t, RepoLinks{
		Repository: "https://github.com/org/docs",
		Edit:       "https://github.com/org/docs/edit/develop/source/guide/intro.md",
		Issues:     "https://github.com/org/docs/issues",
	}, book)

	furo := repoLinks(map[string]any{
		"source_repository": "https://github.com/org/docs",
		"source_branch":     "main",
		"source_directory":  "docs/",
	}, "index.rst")
	assert.Equal(t, "https://github.com/org/docs/edit/main/docs/index.rst", furo.Edit)
	assert.Empty(t, furo.Issues)

	alabaster := repoLinks(map[string]any{"github_user": "org", "github_repo": "docs"}, "index.rst")
	assert.Equal(t, "https://github.com/org/docs", alabaster.Repository)
	assert.Empty(t, alabaster.Edit)

	assert.Equal(t, RepoLinks{}, repoLinks(nil, "index.rst"))
}
