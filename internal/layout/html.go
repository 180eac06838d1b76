package layout

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLAnalyzer handles HTML files. The <title> element, or the first h1
// when there is none, is the title; other h1..h6 become section headings.
// header/footer elements become running header/footer paragraphs.
type HTMLAnalyzer struct{}

func (a *HTMLAnalyzer) Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var b builder
	titled := false
	if title := findTitle(doc); title != "" {
		b.addLine(1, title)
		b.add(RoleTitle, title, 1)
		titled = true
	}

	emit := func(role Role, n *html.Node) {
		t := textContent(n)
		if t == "" {
			return
		}
		b.addLine(1, t)
		b.add(role, t, 1)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				role := RoleSectionHeading
				if level == 1 && !titled {
					role = RoleTitle
					titled = true
				}
				emit(role, n)
				return
			}
			switch n.Data {
			case "script", "style", "nav":
				return
			case "header":
				emit(RolePageHeader, n)
				return
			case "footer":
				emit(RolePageFooter, n)
				return
			case "p", "li", "td", "blockquote", "pre":
				emit(RoleBody, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return b.document(), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
