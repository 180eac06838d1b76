package chunker

import "strings"

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := wordsToTokens(len(strings.Fields(text)))
	if tokens < 1 && strings.TrimSpace(text) != "" {
		tokens = 1
	}
	return tokens
}

func wordsToTokens(words int) int {
	return int(float64(words) * 1.33)
}
