package layout

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownAnalyzer handles Markdown files using goldmark. A leading level-1
// heading is the title; every other heading is a section heading.
type MarkdownAnalyzer struct{}

func (a *MarkdownAnalyzer) Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var b builder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		var role Role
		var t string
		switch node := n.(type) {
		case *ast.Heading:
			t = strings.TrimSpace(extractText(node, src))
			role = RoleSectionHeading
			if node.Level == 1 && len(b.doc.Paragraphs) == 0 {
				role = RoleTitle
			}
		default:
			t = extractText(n, src)
			role = RoleBody
		}
		for _, line := range strings.Split(t, "\n") {
			b.addLine(1, line)
		}
		b.add(role, t, 1)
	}
	return b.document(), nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			s := extractText(c, src)
			buf.WriteString(s)
			if c.Type() == ast.TypeBlock && s != "" {
				buf.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
