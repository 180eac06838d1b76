package layout

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Role is the structural tag a layout analyzer assigns to a paragraph.
type Role string

const (
	RoleTitle          Role = "title"
	RoleSectionHeading Role = "sectionHeading"
	RolePageHeader     Role = "pageHeader"
	RolePageFooter     Role = "pageFooter"
	RolePageNumber     Role = "pageNumber"
	RoleFootnote       Role = "footnote"
	RoleBody           Role = "body"
)

// IsHeading reports whether the role marks a candidate section boundary.
func (r Role) IsHeading() bool {
	return r == RoleTitle || r == RoleSectionHeading
}

// IsNoise reports whether the role is a running header or footer.
func (r Role) IsNoise() bool {
	return r == RolePageHeader || r == RolePageFooter
}

// Paragraph is one unit of analyzed text. Index is its position in document order.
type Paragraph struct {
	Index   int    `json:"index"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Page    int    `json:"page"` // 1-based, 0 if unknown
}

// Page holds the raw lines of one page.
type Page struct {
	Number int      `json:"number"`
	Lines  []string `json:"lines"`
}

// Document is the result of layout analysis.
type Document struct {
	Paragraphs []Paragraph `json:"paragraphs"`
	Pages      []Page      `json:"pages"`
}

// PageText joins the lines of pages first..last (1-based, inclusive).
func (d *Document) PageText(first, last int) string {
	if first < 1 {
		first = 1
	}
	var sb strings.Builder
	for _, p := range d.Pages {
		if p.Number < first || p.Number > last {
			continue
		}
		for _, line := range p.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Analyzer converts raw document bytes into role-tagged paragraphs.
type Analyzer interface {
	Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error)
}

// SupportedExtensions lists file extensions the local analyzers can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".csv":      true,
}

// ForFile returns the local analyzer for a filename.
func ForFile(filename string) (Analyzer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextAnalyzer{}, nil
	case ".md", ".markdown":
		return &MarkdownAnalyzer{}, nil
	case ".html", ".htm":
		return &HTMLAnalyzer{}, nil
	case ".pdf":
		return &PDFAnalyzer{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXAnalyzer{}, nil
	case ".csv":
		return &CSVAnalyzer{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// LocalAnalyzer dispatches to the extension-specific analyzer.
type LocalAnalyzer struct {
	PDFFallbackPdftotext bool
}

func (l LocalAnalyzer) Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error) {
	a, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	if pdf, ok := a.(*PDFAnalyzer); ok {
		pdf.FallbackPdftotext = l.PDFFallbackPdftotext
	}
	return a.Analyze(ctx, r, filename)
}

// builder accumulates paragraphs and pages in document order.
type builder struct {
	doc Document
}

func (b *builder) add(role Role, content string, page int) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	b.doc.Paragraphs = append(b.doc.Paragraphs, Paragraph{
		Index:   len(b.doc.Paragraphs),
		Role:    role,
		Content: content,
		Page:    page,
	})
}

func (b *builder) addLine(page int, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(b.doc.Pages); n == 0 || b.doc.Pages[n-1].Number != page {
		b.doc.Pages = append(b.doc.Pages, Page{Number: page})
	}
	last := &b.doc.Pages[len(b.doc.Pages)-1]
	last.Lines = append(last.Lines, line)
}

func (b *builder) document() *Document {
	d := b.doc
	return &d
}
