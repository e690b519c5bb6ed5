package collector

import (
	"context"
	"time"
)

// Sentiment labels shared by all sources.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Engagement holds whatever interaction counts a provider exposes.
// Zero values mean the provider reports nothing for that metric.
type Engagement struct {
	Likes    int `json:"likes,omitempty"`
	Comments int `json:"comments,omitempty"`
	Shares   int `json:"shares,omitempty"`
}

// Article is the normalized shape every adapter produces.
// Immutable once a normalizer returns it; duplicates found later are
// discarded, the retained copy is never touched.
type Article struct {
	Source         string         `json:"source"`
	ArticleID      string         `json:"articleId"` // provider-native id, unique per source
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Content        string         `json:"content,omitempty"`
	URL            string         `json:"url"`
	PublishedAt    time.Time      `json:"publishedAt"`
	Author         string         `json:"author,omitempty"`
	Currencies     []string       `json:"currencies,omitempty"`
	Sentiment      string         `json:"sentiment"`
	SentimentScore float64        `json:"sentimentScore"` // in [-1, 1]
	Impact         int            `json:"impact"`         // in [1, 10]
	Engagement     Engagement     `json:"engagement,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Query is the shape every adapter accepts: a time window back from now,
// a result cap, and an optional currency filter for providers that
// support server-side filtering.
type Query struct {
	Since      time.Time
	Limit      int
	Currencies []string
}

// Result is what one adapter contributes to a cycle. Malformed counts
// records that were fetched but failed normalization and were dropped.
type Result struct {
	Source    string
	Articles  []Article
	Malformed int
}

// Source abstracts one external news/social provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) (Result, error)
}

func clampImpact(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
