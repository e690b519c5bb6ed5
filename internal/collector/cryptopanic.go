package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	cryptoPanicBaseURL  = "https://cryptopanic.com/api/v1"
	cryptoPanicMaxBody  = 1 << 20 // 1MB
	cryptoPanicInterval = 30 * time.Minute
)

// CryptoPanicSource pulls posts from the CryptoPanic aggregator.
// Works without an API key on the public feed; free tier is 50
// requests/day, hence the generous min-interval gate.
type CryptoPanicSource struct {
	APIKey  string
	Filter  string // hot, rising, bullish, bearish, important
	BaseURL string // override for tests
	Timeout time.Duration

	gate *minIntervalGate
}

func NewCryptoPanicSource(apiKey string, timeout time.Duration) *CryptoPanicSource {
	return &CryptoPanicSource{
		APIKey:  apiKey,
		Filter:  "hot",
		Timeout: timeout,
		gate:    newMinIntervalGate("cryptopanic", cryptoPanicInterval),
	}
}

func (c *CryptoPanicSource) Name() string { return "cryptopanic" }

type cryptoPanicPost struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	PublishedAt string `json:"published_at"`
	CreatedAt   string `json:"created_at"`
	Currencies  []struct {
		Code string `json:"code"`
	} `json:"currencies"`
	Votes struct {
		Positive  int `json:"positive"`
		Negative  int `json:"negative"`
		Important int `json:"important"`
		Liked     int `json:"liked"`
		Disliked  int `json:"disliked"`
	} `json:"votes"`
}

func (c *CryptoPanicSource) Fetch(ctx context.Context, q Query) (Result, error) {
	res := Result{Source: c.Name()}

	if err := c.gate.wait(ctx); err != nil {
		return res, err
	}

	params := url.Values{}
	params.Set("filter", c.filter())
	params.Set("kind", "news")
	if c.APIKey != "" {
		params.Set("auth_token", c.APIKey)
	} else {
		params.Set("public", "true")
	}
	if len(q.Currencies) > 0 {
		params.Set("currencies", strings.Join(q.Currencies, ","))
	}

	base := c.BaseURL
	if base == "" {
		base = cryptoPanicBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/posts/?"+params.Encode(), nil)
	if err != nil {
		return res, &SourceUnavailableError{Source: c.Name(), Err: err}
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := newHTTPClient(c.Timeout).Do(req)
	if err != nil {
		return res, &SourceUnavailableError{Source: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return res, &RateLimitedError{Source: c.Name(), RetryAfter: retryAfter(resp)}
	case resp.StatusCode != http.StatusOK:
		return res, &SourceUnavailableError{Source: c.Name(), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := readLimit(resp.Body, cryptoPanicMaxBody)
	if err != nil {
		return res, &SourceUnavailableError{Source: c.Name(), Err: err}
	}

	var payload struct {
		Results []cryptoPanicPost `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return res, &SourceUnavailableError{Source: c.Name(), Err: fmt.Errorf("decode: %w", err)}
	}

	for _, post := range payload.Results {
		if q.Limit > 0 && len(res.Articles) >= q.Limit {
			break
		}
		a, err := normalizeCryptoPanicPost(post)
		if err != nil {
			res.Malformed++
			continue
		}
		if !q.Since.IsZero() && a.PublishedAt.Before(q.Since) {
			continue
		}
		res.Articles = append(res.Articles, a)
	}

	log.Printf("cryptopanic: fetched=%d kept=%d malformed=%d", len(payload.Results), len(res.Articles), res.Malformed)
	return res, nil
}

func (c *CryptoPanicSource) filter() string {
	if c.Filter == "" {
		return "hot"
	}
	return c.Filter
}

// normalizeCryptoPanicPost maps one raw post to an Article. Sentiment
// comes from community votes, impact from "important" votes plus overall
// vote volume.
func normalizeCryptoPanicPost(post cryptoPanicPost) (Article, error) {
	if post.Title == "" {
		return Article{}, malformed("title")
	}
	if post.URL == "" {
		return Article{}, malformed("url")
	}
	publishedAt, err := time.Parse(time.RFC3339, post.PublishedAt)
	if err != nil {
		return Article{}, malformed("published timestamp")
	}

	currencies := make([]string, 0, len(post.Currencies))
	for _, c := range post.Currencies {
		if code := strings.ToUpper(c.Code); code != "" {
			currencies = append(currencies, code)
		}
	}

	v := post.Votes
	total := v.Positive + v.Negative + v.Important + v.Liked + v.Disliked
	var score float64
	if total > 0 {
		score = float64(v.Positive+v.Liked-v.Negative-v.Disliked) / float64(total)
	}

	return Article{
		Source:         "cryptopanic",
		ArticleID:      strconv.FormatInt(post.ID, 10),
		Title:          post.Title,
		URL:            post.URL,
		PublishedAt:    publishedAt,
		Currencies:     currencies,
		Sentiment:      labelForScore(score),
		SentimentScore: score,
		Impact:         clampImpact(v.Important + total/10),
		Engagement: Engagement{
			Likes:    v.Positive + v.Liked,
			Comments: 0,
			Shares:   0,
		},
		Metadata: map[string]any{
			"domain":          post.Domain,
			"kind":            post.Kind,
			"votes_total":     total,
			"votes_important": v.Important,
		},
	}, nil
}
