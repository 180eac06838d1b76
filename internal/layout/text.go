package layout

import (
	"context"
	"io"
	"strings"
)

// TextAnalyzer handles plain text. Form feeds separate pages, as in
// pdftotext output.
type TextAnalyzer struct{}

func (a *TextAnalyzer) Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return classifyPages(splitPages(text)), nil
}
