package section

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/rfpgest/internal/layout"
	"github.com/dgallion1/rfpgest/internal/llm"
)

const (
	DefaultTOCFirstPage = 2
	DefaultTOCLastPage  = 12

	// unpaginatedTOCLines bounds the window for documents that never got past
	// page 1, such as Markdown, HTML, DOCX and CSV.
	unpaginatedTOCLines = 400
)

// TOCEntry is one parsed table-of-contents line.
type TOCEntry struct {
	Number    string `json:"number"`
	Name      string `json:"name"`
	StartPage int    `json:"start_page"`
	PageRange [2]int `json:"page_range"`
}

// TOC holds the model's table-of-contents text and its parsed entries.
// Raw is what validation sees.
type TOC struct {
	Raw     string     `json:"raw"`
	Entries []TOCEntry `json:"entries,omitempty"`
}

func (t TOC) IsEmpty() bool {
	return strings.TrimSpace(t.Raw) == ""
}

// NewTOC builds a TOC from caller-supplied text.
func NewTOC(raw string) TOC {
	raw = strings.TrimSpace(raw)
	return TOC{Raw: raw, Entries: ParseTOC(raw)}
}

var pageRangeRe = regexp.MustCompile(`\[\s*(\d+)\s*,\s*(\d+)\s*\]`)

// ParseTOC parses "<number> | <name> | <start> | [a,b]" lines.
// Lines without at least number, name and start are skipped.
func ParseTOC(text string) []TOCEntry {
	var entries []TOCEntry
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) < 3 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" && parts[1] == "" {
			continue
		}
		e := TOCEntry{
			Number: strings.TrimSuffix(parts[0], "."),
			Name:   parts[1],
		}
		if n, err := strconv.Atoi(parts[2]); err == nil {
			e.StartPage = n
		}
		if len(parts) > 3 {
			if m := pageRangeRe.FindStringSubmatch(parts[3]); m != nil {
				e.PageRange[0], _ = strconv.Atoi(m[1])
				e.PageRange[1], _ = strconv.Atoi(m[2])
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// TOCExtractor asks the model for the table of contents found in the
// early pages of a document.
type TOCExtractor struct {
	client    llm.Client
	log       *slog.Logger
	FirstPage int
	LastPage  int
}

func NewTOCExtractor(client llm.Client, log *slog.Logger) *TOCExtractor {
	return &TOCExtractor{
		client:    client,
		log:       log,
		FirstPage: DefaultTOCFirstPage,
		LastPage:  DefaultTOCLastPage,
	}
}

func (e *TOCExtractor) Extract(ctx context.Context, doc *layout.Document) (TOC, error) {
	window := e.window(doc)
	if strings.TrimSpace(window) == "" {
		e.log.Info("toc window empty", "first_page", e.FirstPage, "last_page", e.LastPage)
		return TOC{}, nil
	}

	out, err := llm.CompleteWithRetry(ctx, e.client, llm.Request{
		System: tocPrompt,
		User:   window,
		Step:   "toc",
	})
	if err != nil {
		return TOC{}, fmt.Errorf("extract toc: %w", err)
	}

	toc := NewTOC(out)
	if len(toc.Entries) == 0 && !toc.IsEmpty() {
		e.log.Warn("toc output has no parseable entries", "raw_len", len(toc.Raw))
	}
	return toc, nil
}

// window picks the text the model sees. A document whose last page comes
// before FirstPage has no real pagination, so its opening lines are used.
func (e *TOCExtractor) window(doc *layout.Document) string {
	last := 0
	for _, p := range doc.Pages {
		last = max(last, p.Number)
	}
	if last >= e.FirstPage {
		return doc.PageText(e.FirstPage, e.LastPage)
	}

	var sb strings.Builder
	n := 0
	for _, p := range doc.Pages {
		for _, line := range p.Lines {
			if n == unpaginatedTOCLines {
				return sb.String()
			}
			sb.WriteString(line)
			sb.WriteString("\n")
			n++
		}
	}
	return sb.String()
}
