package section

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dgallion1/rfpgest/internal/llm"
)

// PageNormalizer turns a raw page-number paragraph into a page label.
type PageNormalizer interface {
	Normalize(ctx context.Context, raw string) string
}

var (
	pagePrefixRe = regexp.MustCompile(`(?i)^page\s+(\S+)(\s+(of|/)\s+\S+)?$`)
	pageOfRe     = regexp.MustCompile(`(?i)^(\S+)\s+(of|/)\s+\d+$`)
	pageDashRe   = regexp.MustCompile(`^[-–\s]*(\S+?)[-–\s]*$`)
)

// RuleNormalizer strips "Page" prefixes and "of N" suffixes.
type RuleNormalizer struct{}

func (RuleNormalizer) Normalize(_ context.Context, raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if m := pagePrefixRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := pageOfRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := pageDashRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// LLMNormalizer asks the model and falls back to RuleNormalizer.
type LLMNormalizer struct {
	client   llm.Client
	log      *slog.Logger
	fallback RuleNormalizer
}

func NewLLMNormalizer(client llm.Client, log *slog.Logger) *LLMNormalizer {
	return &LLMNormalizer{client: client, log: log}
}

func (n *LLMNormalizer) Normalize(ctx context.Context, raw string) string {
	out, err := llm.CompleteWithRetry(ctx, n.client, llm.Request{
		System: pageNumberPrompt,
		User:   raw,
		Step:   "page_number",
	})
	out = strings.TrimSpace(out)
	if err != nil || out == "" || strings.ContainsAny(out, "\n ") {
		n.log.Warn("page number normalization fell back to rules", "raw", raw, "output", out, "error", err)
		return n.fallback.Normalize(ctx, raw)
	}
	return out
}
