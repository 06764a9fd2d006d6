// Package features holds the optional post-processors applied to extracted
// books: keyword sentiment tagging and reversible field encryption.
package features

import (
	"strings"

	"github.com/aluiziolira/books-scrape-api/models"
)

const analysisNote = "Basic sentiment analysis completed"

var (
	positiveWords = []string{"great", "excellent", "good", "awesome"}
	negativeWords = []string{"poor", "bad", "terrible", "awful"}
)

// Sentiment labels.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Analyze scores text against the fixed lexicons. Each lexicon word counts
// once when it occurs anywhere in the lower-cased text, so "goodness"
// matches "good".
func Analyze(text string) models.Analysis {
	lower := strings.ToLower(text)
	pos := countContained(lower, positiveWords)
	neg := countContained(lower, negativeWords)
	score := pos - neg

	sentiment := Neutral
	switch {
	case score > 0:
		sentiment = Positive
	case score < 0:
		sentiment = Negative
	}

	return models.Analysis{
		Sentiment:     sentiment,
		Score:         score,
		PositiveWords: pos,
		NegativeWords: neg,
		Analysis:      analysisNote,
	}
}

// AnalyzeBook attaches the sentiment of the book's title to it. Books carry
// no description yet, so the analysed text is the title followed by a space.
func AnalyzeBook(b *models.Book) {
	analysis := Analyze(b.Title + " ")
	b.AIAnalysis = &analysis
}

func countContained(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
