package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// ParseJSON decodes model text into T. Code fences and any prose around the
// outermost JSON object are tolerated.
func ParseJSON[T any](text string) (T, error) {
	var out T
	s := stripCodeBlock(text)
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out, nil
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), &out); err == nil {
			return out, nil
		}
	}
	return out, fmt.Errorf("%w: %s", ErrMalformedOutput, truncate(s, 200))
}
