package integrations

import (
	"strings"

	"kentj-backend/internal/models"
)

var (
	positiveWords = map[string]struct{}{
		"happy": {}, "excited": {}, "great": {}, "awesome": {}, "love": {}, "wonderful": {}, "amazing": {},
	}
	negativeWords = map[string]struct{}{
		"sad": {}, "worried": {}, "anxious": {}, "scared": {}, "hate": {}, "terrible": {}, "awful": {},
	}
)

// AnalyzeSentiment counts whole lowercase words against small positive and negative lists.
// Punctuation is not stripped, so "happy!" does not count.
func AnalyzeSentiment(message string) string {
	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(message)) {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
