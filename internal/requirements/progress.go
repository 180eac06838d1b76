package requirements

import (
	"context"

	"github.com/dgallion1/rfpgest/internal/store"
)

// ProgressReport summarizes extraction and review over a document's sections.
type ProgressReport struct {
	Total             int     `json:"total"`
	Extracted         int     `json:"extracted"`
	Reviewed          int     `json:"reviewed"`
	ExtractionPercent float64 `json:"extraction_progress"`
	ReviewPercent     float64 `json:"review_progress"`
}

// Progress is computed from persisted records on every call. Only records
// with section content count.
func Progress(ctx context.Context, s store.Store, docID string) (ProgressReport, error) {
	recs, err := store.Sections(ctx, s, docID)
	if err != nil {
		return ProgressReport{}, err
	}
	var p ProgressReport
	for _, r := range recs {
		if r.SectionContent == "" {
			continue
		}
		p.Total++
		if r.Extracted {
			p.Extracted++
		}
		if r.Reviewed {
			p.Reviewed++
		}
	}
	if p.Total > 0 {
		p.ExtractionPercent = float64(p.Extracted) / float64(p.Total) * 100
		p.ReviewPercent = float64(p.Reviewed) / float64(p.Total) * 100
	}
	return p, nil
}

// Flagged returns every record marked as a requirement across a document.
func Flagged(ctx context.Context, s store.Store, docID string) ([]Record, error) {
	recs, err := store.Sections(ctx, s, docID)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range recs {
		for _, req := range r.Requirements {
			if req.IsRequirement == "yes" {
				out = append(out, req)
			}
		}
	}
	return out, nil
}
