// Package requirements turns stored section content into requirement records.
package requirements

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/rfpgest/internal/chunker"
	"github.com/dgallion1/rfpgest/internal/llm"
	"github.com/dgallion1/rfpgest/internal/store"
)

const DefaultMaxSectionTokens = 3000

// Record is one requirement line.
type Record = store.Requirement

// Extraction is the model output for one section.
type Extraction struct {
	Analysis string   `json:"analysis"`
	Output   []Record `json:"output"`
}

type extractionReply struct {
	ThoughtProcess string `json:"thought_process"`
	Content        string `json:"content"`
}

// Extractor segments section content into requirement records.
type Extractor struct {
	client           llm.Client
	log              *slog.Logger
	MaxSectionTokens int
}

func NewExtractor(client llm.Client, log *slog.Logger) *Extractor {
	return &Extractor{client: client, log: log, MaxSectionTokens: DefaultMaxSectionTokens}
}

// Extract runs the model over content. Long content is split at line
// boundaries and the pieces' outputs are concatenated in order.
func (e *Extractor) Extract(ctx context.Context, content string) (Extraction, error) {
	pieces := chunker.Split(content, chunker.Config{MaxTokens: e.MaxSectionTokens})
	var out Extraction
	var analyses []string
	for i, piece := range pieces {
		text, err := llm.CompleteWithRetry(ctx, e.client, llm.Request{
			System: contentParsingPrompt,
			User:   "Please parse the content.\nContent:\n" + piece,
			JSON:   true,
			Step:   "extract",
		})
		if err != nil {
			return Extraction{}, fmt.Errorf("piece %d/%d: %w", i+1, len(pieces), err)
		}
		reply, err := llm.ParseJSON[extractionReply](text)
		if err != nil {
			return Extraction{}, fmt.Errorf("piece %d/%d: %w", i+1, len(pieces), err)
		}
		records, skipped := ParseLines(reply.Content)
		if skipped > 0 {
			e.log.Warn("skipped malformed requirement lines", "piece", i, "skipped", skipped)
		}
		out.Output = append(out.Output, records...)
		if a := strings.TrimSpace(reply.ThoughtProcess); a != "" {
			analyses = append(analyses, a)
		}
	}
	out.Analysis = strings.Join(analyses, "\n\n")
	if out.Output == nil {
		out.Output = []Record{}
	}
	return out, nil
}

// ParseLines parses "name | page | number | verbatim | yes/no" lines.
// The verbatim field keeps any inner pipes. Lines with fewer than five
// fields or a flag other than yes/no are skipped and counted.
func ParseLines(content string) ([]Record, int) {
	var out []Record
	skipped := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 5 {
			skipped++
			continue
		}
		flag := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
		if flag != "yes" && flag != "no" {
			skipped++
			continue
		}
		out = append(out, Record{
			SectionName:   strings.TrimSpace(parts[0]),
			PageNumber:    strings.TrimSpace(parts[1]),
			SectionNumber: strings.TrimSpace(parts[2]),
			Content:       strings.TrimSpace(strings.Join(parts[3:len(parts)-1], "|")),
			IsRequirement: flag,
		})
	}
	return out, skipped
}
