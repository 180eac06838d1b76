package section

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/rfpgest/internal/layout"
)

const DefaultValidatorConcurrency = 3

// Partition is the ordered set of headings that survived validation.
type Partition struct {
	Headings    []string     `json:"headings"`
	Validations []Validation `json:"validations"`
}

// Partitioner picks section boundaries from candidate headings.
type Partitioner struct {
	validator       Validator
	log             *slog.Logger
	Concurrency     int
	KeepUnvalidated bool

	// OnVerdict, if set, sees every candidate's verdict once per Partition.
	OnVerdict func(Verdict)
}

func NewPartitioner(v Validator, log *slog.Logger) *Partitioner {
	return &Partitioner{
		validator:       v,
		log:             log,
		Concurrency:     DefaultValidatorConcurrency,
		KeepUnvalidated: true,
	}
}

// Candidates returns distinct title and sectionHeading contents in order of
// first appearance.
func Candidates(paragraphs []layout.Paragraph) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range paragraphs {
		if !p.Role.IsHeading() {
			continue
		}
		h := strings.TrimSpace(p.Content)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

func (p *Partitioner) Partition(ctx context.Context, paragraphs []layout.Paragraph, toc TOC) (Partition, error) {
	candidates := Candidates(paragraphs)
	results := make([]Validation, len(candidates))

	if toc.IsEmpty() {
		p.log.Warn("no table of contents, skipping validation", "candidates", len(candidates))
		for i, h := range candidates {
			results[i] = Validation{Heading: h, Verdict: Unvalidated, Rationale: "no table of contents"}
		}
	} else {
		limit := p.Concurrency
		if limit <= 0 {
			limit = DefaultValidatorConcurrency
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, h := range candidates {
			g.Go(func() error {
				v, err := p.validator.Validate(gctx, h, toc.Raw)
				if err != nil {
					p.log.Warn("heading validation failed", "heading", h, "error", err)
					v = Validation{Verdict: Unvalidated, Rationale: err.Error()}
				}
				v.Heading = h
				results[i] = v
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return Partition{}, err
		}
	}

	part := Partition{Validations: results}
	for _, v := range results {
		if p.OnVerdict != nil {
			p.OnVerdict(v.Verdict)
		}
		switch v.Verdict {
		case Valid:
			part.Headings = append(part.Headings, v.Heading)
		case Unvalidated:
			if p.KeepUnvalidated {
				p.log.Info("keeping unvalidated heading", "heading", v.Heading, "rationale", v.Rationale)
				part.Headings = append(part.Headings, v.Heading)
			} else {
				p.log.Info("dropping unvalidated heading", "heading", v.Heading, "rationale", v.Rationale)
			}
		default:
			p.log.Debug("rejected heading", "heading", v.Heading)
		}
	}
	return part, nil
}
