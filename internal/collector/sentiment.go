package collector

import "strings"

// Keyword lexicons for coarse sentiment when the provider gives no
// explicit signal (RSS, NewsAPI, plain headlines).
var bullishWords = []string{
	"surge", "rally", "gain", "rise", "growth", "bullish", "positive",
	"optimistic", "adoption", "breakthrough", "success", "milestone",
	"record high", "approval", "pump", "moon", "all-time high",
}

var bearishWords = []string{
	"crash", "fall", "drop", "decline", "loss", "bearish", "negative",
	"pessimistic", "warning", "concern", "risk", "threat", "ban",
	"hack", "exploit", "dump", "sell-off", "selloff",
}

// ScoreText derives a sentiment label and a score in [-1, 1] from free
// text using the lexicons. Score is (bull-bear)/(bull+bear); zero hits
// means neutral 0. Labels flip at +-0.2, matching the vote-based
// thresholds used for explicit provider signals.
func ScoreText(text string) (string, float64) {
	lower := strings.ToLower(text)

	var bull, bear int
	for _, w := range bullishWords {
		if strings.Contains(lower, w) {
			bull++
		}
	}
	for _, w := range bearishWords {
		if strings.Contains(lower, w) {
			bear++
		}
	}

	if bull+bear == 0 {
		return SentimentNeutral, 0
	}
	score := float64(bull-bear) / float64(bull+bear)
	return labelForScore(score), score
}

func labelForScore(score float64) string {
	switch {
	case score > 0.2:
		return SentimentBullish
	case score < -0.2:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}
