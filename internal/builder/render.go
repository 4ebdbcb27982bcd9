package builder

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"

	"folio/internal/config"
)

// renderer turns source files into HTML fragments.
type renderer struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
	unsafe    bool
}

func newRenderer(cfg config.SiteConfig, unsafe bool) *renderer {
	policy := bluemonday.UGCPolicy()
	// cross-page links stay followable; only external ones get rel="nofollow"
	policy.RequireNoFollowOnLinks(false)
	policy.RequireNoFollowOnFullyQualifiedLinks(true)
	policy.AllowAttrs("class").OnElements("div", "span", "p", "pre", "code", "table")

	return &renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
				parser.WithASTTransformers(
					util.Prioritized(newSourceLinkTransformer(cfg.SourceSuffixes()), 100),
				),
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		sanitizer: policy,
		unsafe:    unsafe,
	}
}

// render parses raw with the parser kind of src. It returns the front matter,
// the title found in the document (empty if none) and the HTML body.
func (r *renderer) render(src source, raw []byte, baseHref string) (PageMeta, string, string, error) {
	var (
		meta  PageMeta
		title string
		out   []byte
		err   error
	)
	switch src.Parser {
	case config.ParserMarkdown:
		meta, title, out, err = r.renderMarkdown(raw)
	case config.ParserRestructuredText:
		meta, title, out, err = renderRST(raw, baseHref)
	default:
		return PageMeta{}, "", "", fmt.Errorf("%w: %q", config.ErrUnknownParser, src.Parser)
	}
	if err != nil {
		return PageMeta{}, "", "", err
	}
	if !r.unsafe {
		out = r.sanitizer.SanitizeBytes(out)
	}
	return meta, title, string(out), nil
}

func (r *renderer) renderMarkdown(raw []byte) (PageMeta, string, []byte, error) {
	meta := PageMeta{}
	front, body := splitFrontMatter(raw)
	if front != nil {
		if err := yaml.Unmarshal(front, &meta); err != nil {
			return PageMeta{}, "", nil, fmt.Errorf("failed to parse front matter: %w", err)
		}
	}

	doc := r.markdown.Parser().Parse(text.NewReader(body))

	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			title = headingText(h, body)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	var buf bytes.Buffer
	if err := r.markdown.Renderer().Render(&buf, body, doc); err != nil {
		return meta, "", nil, fmt.Errorf("failed to render markdown with goldmark: %w", err)
	}
	return meta, title, buf.Bytes(), nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// body. front is nil when raw has no front matter.
func splitFrontMatter(raw []byte) (front, body []byte) {
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))
	var rest []byte
	switch {
	case bytes.HasPrefix(raw, []byte("---\n")):
		rest = raw[4:]
	case bytes.HasPrefix(raw, []byte("---\r\n")):
		rest = raw[5:]
	default:
		return nil, raw
	}
	for off := 0; off <= len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line := rest[off:]
		next := len(rest)
		if end >= 0 {
			line = rest[off : off+end]
			next = off + end + 1
		}
		if string(bytes.TrimRight(line, "\r")) == "---" {
			return rest[:off], rest[next:]
		}
		if end < 0 {
			break
		}
		off = next
	}
	return nil, raw
}
