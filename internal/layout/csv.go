package layout

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// CSVAnalyzer handles spreadsheet exports such as compliance matrices. The
// file name is the title and each data row becomes one paragraph labelled
// with the header row.
type CSVAnalyzer struct{}

func (a *CSVAnalyzer) Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var b builder
	b.add(RoleTitle, strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)), 1)
	if len(records) == 0 {
		return b.document(), nil
	}

	// First row is headers.
	headers := records[0]
	for _, row := range records[1:] {
		var line strings.Builder
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if line.Len() > 0 {
				line.WriteString(", ")
			}
			if j < len(headers) && headers[j] != "" {
				line.WriteString(headers[j] + ": ")
			}
			line.WriteString(cell)
		}
		b.addLine(1, line.String())
		b.add(RoleBody, line.String(), 1)
	}
	return b.document(), nil
}
