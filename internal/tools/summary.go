// ABOUTME: Extracts a one-paragraph plain-text summary from markdown tool docs.
// ABOUTME: Uses goldmark's parser so emphasis, code spans and links render as text.

package tools

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Summary returns the first paragraph of doc as plain text with markup
// stripped and line breaks folded into spaces. Empty docs yield "".
func Summary(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return ""
	}

	src := []byte(doc)
	root := markdown.Parser().Parse(text.NewReader(src))

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading:
			if s := plainText(n, src); s != "" {
				return s
			}
		}
	}
	return ""
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
