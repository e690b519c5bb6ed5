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
	newsAPIBaseURL = "https://newsapi.org/v2"
	newsAPIMaxBody = 2 << 20 // 2MB
)

// Query terms when the caller gives no currency filter.
var newsAPIDefaultKeywords = []string{"bitcoin", "ethereum", "cryptocurrency", "crypto", "blockchain"}

// Editorial outlets that warrant an impact boost.
var cryptoNewsDomains = []string{
	"coindesk.com", "cointelegraph.com", "decrypt.co", "theblock.co",
	"bitcoinmagazine.com", "cryptoslate.com", "cryptopotato.com",
	"ambcrypto.com", "u.today",
}

// NewsAPISource queries NewsAPI.org /everything. An API key is required;
// constructing with an empty key yields a ConfigError from Fetch so the
// orchestrator can report and skip it without killing the cycle.
type NewsAPISource struct {
	APIKey  string
	BaseURL string // override for tests
	Timeout time.Duration
	Vocab   Vocabulary
}

func NewNewsAPISource(apiKey string, timeout time.Duration, vocab Vocabulary) *NewsAPISource {
	return &NewsAPISource{APIKey: apiKey, Timeout: timeout, Vocab: vocab}
}

func (n *NewsAPISource) Name() string { return "newsapi" }

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

func (n *NewsAPISource) Fetch(ctx context.Context, q Query) (Result, error) {
	res := Result{Source: n.Name()}

	if n.APIKey == "" {
		return res, &ConfigError{Source: n.Name(), Reason: "missing NEWSAPI_API_KEY"}
	}

	query := strings.Join(newsAPIDefaultKeywords, " OR ")
	if len(q.Currencies) > 0 {
		query = strings.Join(q.Currencies, " OR ")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	if q.Limit > 0 {
		params.Set("pageSize", strconv.Itoa(q.Limit))
	}
	if !q.Since.IsZero() {
		params.Set("from", q.Since.UTC().Format("2006-01-02T15:04:05Z"))
	}

	base := n.BaseURL
	if base == "" {
		base = newsAPIBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/everything?"+params.Encode(), nil)
	if err != nil {
		return res, &SourceUnavailableError{Source: n.Name(), Err: err}
	}
	req.Header.Set("X-Api-Key", n.APIKey)
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := newHTTPClient(n.Timeout).Do(req)
	if err != nil {
		return res, &SourceUnavailableError{Source: n.Name(), Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return res, &RateLimitedError{Source: n.Name(), RetryAfter: retryAfter(resp)}
	case http.StatusUnauthorized:
		return res, &ConfigError{Source: n.Name(), Reason: "API key rejected"}
	default:
		return res, &SourceUnavailableError{Source: n.Name(), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := readLimit(resp.Body, newsAPIMaxBody)
	if err != nil {
		return res, &SourceUnavailableError{Source: n.Name(), Err: err}
	}

	var payload struct {
		Status   string           `json:"status"`
		Message  string           `json:"message"`
		Articles []newsAPIArticle `json:"articles"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return res, &SourceUnavailableError{Source: n.Name(), Err: fmt.Errorf("decode: %w", err)}
	}
	if payload.Status != "ok" {
		return res, &SourceUnavailableError{Source: n.Name(), Err: fmt.Errorf("api status %q: %s", payload.Status, payload.Message)}
	}

	for _, raw := range payload.Articles {
		if q.Limit > 0 && len(res.Articles) >= q.Limit {
			break
		}
		a, err := normalizeNewsAPIArticle(raw, n.vocab())
		if err != nil {
			res.Malformed++
			continue
		}
		res.Articles = append(res.Articles, a)
	}

	log.Printf("newsapi: fetched=%d kept=%d malformed=%d", len(payload.Articles), len(res.Articles), res.Malformed)
	return res, nil
}

func (n *NewsAPISource) vocab() Vocabulary {
	if n.Vocab != nil {
		return n.Vocab
	}
	return DefaultVocabulary()
}

// normalizeNewsAPIArticle maps one raw article to an Article. NewsAPI has
// no editorial signal, so sentiment comes from the headline lexicon and
// impact starts at 5 with boosts for known crypto outlets and majors.
func normalizeNewsAPIArticle(raw newsAPIArticle, vocab Vocabulary) (Article, error) {
	if raw.Title == "" {
		return Article{}, malformed("title")
	}
	if raw.URL == "" {
		return Article{}, malformed("url")
	}
	publishedAt, err := time.Parse(time.RFC3339, raw.PublishedAt)
	if err != nil {
		return Article{}, malformed("published timestamp")
	}

	currencies := vocab.Extract(raw.Title + " " + raw.Description)
	sentiment, score := ScoreText(raw.Title + " " + raw.Description)

	impact := 5
	for _, domain := range cryptoNewsDomains {
		if strings.Contains(raw.URL, domain) {
			impact += 2
			break
		}
	}
	for _, code := range currencies {
		if code == "BTC" || code == "ETH" {
			impact++
			break
		}
	}

	return Article{
		Source:         "newsapi",
		ArticleID:      raw.URL, // NewsAPI exposes no native id
		Title:          raw.Title,
		Description:    raw.Description,
		Content:        raw.Content,
		URL:            raw.URL,
		PublishedAt:    publishedAt,
		Author:         raw.Author,
		Currencies:     currencies,
		Sentiment:      sentiment,
		SentimentScore: score,
		Impact:         clampImpact(impact),
		Metadata: map[string]any{
			"source_name": raw.Source.Name,
			"source_id":   raw.Source.ID,
			"image_url":   raw.URLToImage,
		},
	}, nil
}
