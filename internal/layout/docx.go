package layout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXAnalyzer handles .docx files. Heading styles become section headings
// and the Title style becomes a title. Word files carry no page breaks we
// can trust, so every paragraph lands on page 1.
type DOCXAnalyzer struct{}

func (a *DOCXAnalyzer) Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "rfpgest-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var b builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		b.addLine(1, text)
		b.add(docxRole(para, text), text, 1)
	}
	return b.document(), nil
}

func docxRole(para *docx.Paragraph, text string) Role {
	if para.Properties == nil || para.Properties.Style == nil {
		return ClassifyLine(text)
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	switch {
	case style == "title":
		return RoleTitle
	case strings.HasPrefix(style, "heading"):
		return RoleSectionHeading
	case style == "header":
		return RolePageHeader
	case style == "footer":
		return RolePageFooter
	case style == "footnotetext":
		return RoleFootnote
	}
	return ClassifyLine(text)
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
