package builder

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// sourceLinkTransformer rewrites links to other source files so they point
// at the rendered pages: "guide.md#setup" becomes "guide.html#setup".
type sourceLinkTransformer struct {
	suffixes [][]byte
}

func newSourceLinkTransformer(suffixes []string) parser.ASTTransformer {
	t := &sourceLinkTransformer{}
	for _, s := range suffixes {
		t.suffixes = append(t.suffixes, []byte(s))
	}
	return t
}

func (t *sourceLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		link.Destination = t.rewrite(link.Destination)
		return ast.WalkContinue, nil
	})
}

func (t *sourceLinkTransformer) rewrite(dest []byte) []byte {
	if bytes.Contains(dest, []byte("://")) || bytes.HasPrefix(dest, []byte("mailto:")) {
		return dest
	}
	target, fragment := dest, []byte(nil)
	if i := bytes.IndexByte(dest, '#'); i >= 0 {
		target, fragment = dest[:i], dest[i:]
	}
	for _, suffix := range t.suffixes {
		if len(target) > len(suffix) && bytes.HasSuffix(target, suffix) {
			out := append([]byte{}, bytes.TrimSuffix(target, suffix)...)
			out = append(out, ".html"...)
			return append(out, fragment...)
		}
	}
	return dest
}

// headingText concatenates the text of a heading node.
func headingText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
