package section

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/rfpgest/internal/llm"
)

// Verdict is the outcome of validating one candidate heading.
type Verdict string

const (
	Valid       Verdict = "valid"
	Invalid     Verdict = "invalid"
	Unvalidated Verdict = "unvalidated"
)

// Validation pairs a candidate heading with its verdict.
type Validation struct {
	Heading   string  `json:"heading"`
	Verdict   Verdict `json:"verdict"`
	Rationale string  `json:"rationale,omitempty"`
}

// Validator decides whether a candidate heading is a real section.
// A non-nil error comes with an Unvalidated verdict.
type Validator interface {
	Validate(ctx context.Context, heading, toc string) (Validation, error)
}

type verdictReply struct {
	ThoughtProcess string `json:"thought_process"`
	Answer         string `json:"answer"`
}

// LLMValidator validates headings against the table of contents with a model.
type LLMValidator struct {
	client llm.Client
	log    *slog.Logger
}

func NewLLMValidator(client llm.Client, log *slog.Logger) *LLMValidator {
	return &LLMValidator{client: client, log: log}
}

func (v *LLMValidator) Validate(ctx context.Context, heading, toc string) (Validation, error) {
	req := llm.Request{
		System: validatorPrompt,
		User:   fmt.Sprintf("Table of Contents:\n%s\n\nSection: %s", toc, heading),
		JSON:   true,
		Step:   "validate",
	}

	var lastErr error
	// One extra attempt for malformed replies. Transient errors are retried inside.
	for attempt := 0; attempt < 2; attempt++ {
		out, err := llm.CompleteWithRetry(ctx, v.client, req)
		if err != nil {
			lastErr = err
			break
		}
		verdict, rationale, err := parseVerdict(out)
		if err == nil {
			return Validation{Heading: heading, Verdict: verdict, Rationale: rationale}, nil
		}
		lastErr = err
		v.log.Warn("malformed verdict", "heading", heading, "attempt", attempt, "error", err)
	}
	return Validation{Heading: heading, Verdict: Unvalidated, Rationale: lastErr.Error()},
		fmt.Errorf("validate %q: %w", heading, lastErr)
}

func parseVerdict(out string) (Verdict, string, error) {
	reply, err := llm.ParseJSON[verdictReply](out)
	if err != nil {
		return "", "", err
	}
	switch strings.ToLower(strings.TrimSpace(reply.Answer)) {
	case "yes":
		return Valid, reply.ThoughtProcess, nil
	case "no":
		return Invalid, reply.ThoughtProcess, nil
	}
	return "", "", fmt.Errorf("%w: answer %q", llm.ErrMalformedOutput, reply.Answer)
}
