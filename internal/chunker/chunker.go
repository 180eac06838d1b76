// Package chunker splits long section text into model-sized pieces.
package chunker

import "strings"

// Config controls chunking behavior.
type Config struct {
	MaxTokens int // Upper bound per piece, in estimated tokens.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 3000}
}

// Split breaks text into pieces of at most cfg.MaxTokens, cutting only at
// line boundaries. A single line over the limit is cut at sentence ends.
// Pieces never overlap, so every line lands in exactly one piece.
func Split(text string, cfg Config) []string {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if EstimateTokens(text) <= cfg.MaxTokens {
		return []string{text}
	}

	var result []string
	var current strings.Builder
	currentWords := 0

	flush := func() {
		if currentWords > 0 {
			result = append(result, current.String())
		}
		current.Reset()
		currentWords = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineWords := len(strings.Fields(line))
		if wordsToTokens(lineWords) > cfg.MaxTokens {
			flush()
			parts := splitBySentences(strings.TrimRight(line, "\n"), cfg.MaxTokens)
			for i, p := range parts {
				if i == len(parts)-1 && strings.HasSuffix(line, "\n") {
					p += "\n"
				}
				result = append(result, p)
			}
			continue
		}
		if wordsToTokens(currentWords+lineWords) > cfg.MaxTokens {
			flush()
		}
		current.WriteString(line)
		currentWords += lineWords
	}
	flush()

	return result
}

// splitBySentences breaks a large line into sentence-based pieces.
func splitBySentences(text string, targetTokens int) []string {
	var result []string
	var current strings.Builder
	currentWords := 0

	for _, sent := range splitSentences(text) {
		sentWords := len(strings.Fields(sent))
		if wordsToTokens(currentWords+sentWords) > targetTokens && currentWords > 0 {
			result = append(result, current.String())
			current.Reset()
			currentWords = 0
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentWords += sentWords
	}
	if currentWords > 0 {
		result = append(result, current.String())
	}
	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
