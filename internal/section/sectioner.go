// Package section splits an analyzed RFP into validated, page-tagged sections.
package section

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/rfpgest/internal/layout"
)

// Phase names a stage of a sectioning run.
type Phase string

const (
	PhaseTOC        Phase = "toc"
	PhaseValidating Phase = "validating"
	PhasePopulating Phase = "populating"
)

// Result is everything a sectioning run produced.
type Result struct {
	DocID       string       `json:"doc_id"`
	TOC         TOC          `json:"toc"`
	TOCError    string       `json:"toc_error,omitempty"`
	Validations []Validation `json:"validations"`
	Sections    []Section    `json:"sections"`
}

// Sectioner runs TOC extraction, partitioning and population in order.
type Sectioner struct {
	toc         *TOCExtractor
	partitioner *Partitioner
	populator   *Populator
	log         *slog.Logger
}

func NewSectioner(toc *TOCExtractor, part *Partitioner, pop *Populator, log *slog.Logger) *Sectioner {
	return &Sectioner{toc: toc, partitioner: part, populator: pop, log: log}
}

// RunOption customizes a single run.
type RunOption func(*runOptions)

type runOptions struct {
	onPhase func(Phase)
}

// WithPhaseHook calls fn as each phase starts.
func WithPhaseHook(fn func(Phase)) RunOption {
	return func(o *runOptions) { o.onPhase = fn }
}

// Run sections doc. A non-empty tocOverride replaces model extraction.
// TOC extraction failures degrade to an empty TOC and are reported on the Result.
func (s *Sectioner) Run(ctx context.Context, docID string, doc *layout.Document, tocOverride string, opts ...RunOption) (*Result, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	phase := func(p Phase) {
		if o.onPhase != nil {
			o.onPhase(p)
		}
	}
	log := s.log.With("doc_id", docID)
	res := &Result{DocID: docID}

	phase(PhaseTOC)
	if strings.TrimSpace(tocOverride) != "" {
		res.TOC = NewTOC(tocOverride)
		log.Info("using supplied table of contents", "entries", len(res.TOC.Entries))
	} else if s.toc != nil {
		toc, err := s.toc.Extract(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("toc extraction failed, continuing without it", "error", err)
			res.TOCError = err.Error()
		}
		res.TOC = toc
	}

	phase(PhaseValidating)
	part, err := s.partitioner.Partition(ctx, doc.Paragraphs, res.TOC)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	res.Validations = part.Validations
	log.Info("partitioned", "candidates", len(part.Validations), "headings", len(part.Headings))

	phase(PhasePopulating)
	res.Sections = s.populator.Populate(ctx, doc.Paragraphs, part.Headings)
	log.Info("populated", "sections", len(res.Sections))
	return res, nil
}

var idReplacer = strings.NewReplacer("/", " ", "\\", " ", "?", " ", "#", " ")

// SectionID is the record ID for a section of a document.
func SectionID(docID, heading string) string {
	return idReplacer.Replace(docID + " - " + heading)
}

