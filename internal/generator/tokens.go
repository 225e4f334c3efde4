package generator

import (
	"unicode"

	"github.com/yourorg/handoff/pkg/types"
)

// EstimateTokens provides a rough token estimate.
// CJK text is ~2 chars/token, others ~4 chars/token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var cjk, other int
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			cjk++
			continue
		}
		other++
	}
	return (cjk+1)/2 + (other+3)/4
}

// EstimatePromptTokens sums the estimate over every message.
func EstimatePromptTokens(msgs []types.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
