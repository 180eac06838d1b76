package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/dgallion1/rfpgest/internal/metrics"
	"github.com/dgallion1/rfpgest/internal/section"
)

// PersistResult counts the outcome of a PersistSections call.
type PersistResult struct {
	Written int
	Failed  int
}

// PersistSections upserts one record per section and then the TOC record.
// Headings whose IDs sanitize to the same value get a numeric suffix.
// Every record is attempted; failures are aggregated and nothing is rolled back.
func PersistSections(ctx context.Context, s Store, log *slog.Logger, docID string, sections []section.Section, toc section.TOC) (PersistResult, error) {
	var res PersistResult
	var errs *multierror.Error

	write := func(rec Record) {
		if err := s.Upsert(ctx, rec); err != nil {
			log.Error("persist record failed", "doc_id", docID, "section_id", rec.ID, "error", err)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", rec.ID, err))
			metrics.RecordsPersisted.WithLabelValues(string(rec.Kind), "error").Inc()
			res.Failed++
			return
		}
		metrics.RecordsPersisted.WithLabelValues(string(rec.Kind), "ok").Inc()
		res.Written++
	}

	ids := make(map[string]string, len(sections))
	for _, sec := range sections {
		id := section.SectionID(docID, sec.Heading)
		if prev, taken := ids[id]; taken {
			base := id
			for n := 2; taken; n++ {
				id = fmt.Sprintf("%s (%d)", base, n)
				_, taken = ids[id]
			}
			log.Warn("section id collision", "doc_id", docID, "heading", sec.Heading, "collides_with", prev, "section_id", id)
		}
		ids[id] = sec.Heading
		write(Record{
			ID:             id,
			PartitionKey:   docID,
			Kind:           KindSection,
			SectionID:      sec.Heading,
			SectionContent: sec.Content,
			PageNumber:     sec.PageNumber,
			Order:          sec.Order,
		})
	}

	entries := make([]TOCEntry, 0, len(toc.Entries))
	for _, e := range toc.Entries {
		entries = append(entries, TOCEntry(e))
	}
	write(Record{
		ID:              TOCRecordID,
		PartitionKey:    docID,
		Kind:            KindTOC,
		TableOfContents: toc.Raw,
		TOCEntries:      entries,
	})

	return res, errs.ErrorOrNil()
}

// AttachRequirements stores extraction output on a section record.
func AttachRequirements(ctx context.Context, s Store, docID, recordID, analysis string, reqs []Requirement) error {
	rec, err := s.Get(ctx, docID, recordID)
	if err != nil {
		return err
	}
	if rec.Kind != KindSection {
		return fmt.Errorf("record %q is a %s record: %w", recordID, rec.Kind, ErrNotFound)
	}
	rec.Requirements = reqs
	rec.Analysis = analysis
	rec.Extracted = true
	return s.Upsert(ctx, rec)
}

// MarkReviewed replaces a section's requirements with reviewed ones.
func MarkReviewed(ctx context.Context, s Store, docID, recordID string, reqs []Requirement) error {
	rec, err := s.Get(ctx, docID, recordID)
	if err != nil {
		return err
	}
	if rec.Kind != KindSection {
		return fmt.Errorf("record %q is a %s record: %w", recordID, rec.Kind, ErrNotFound)
	}
	rec.Requirements = reqs
	rec.Extracted = true
	rec.Reviewed = true
	return s.Upsert(ctx, rec)
}
