package collector

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	xTrendsURL      = "https://trends24.in/"
	xTrendsMaxItems = 50
	xTrendsMaxBody  = 2 << 20 // 2MB
)

// Topics kept even when no vocabulary symbol matches.
var cryptoTopicWords = []string{
	"crypto", "bitcoin", "ethereum", "blockchain", "defi", "nft", "web3",
	"altcoin", "binance", "coinbase", "stablecoin", "memecoin",
}

// XTrendsSource scrapes X (Twitter) trending topics from trends24.in and
// keeps the crypto-related ones. Credential-free; colly first, plain
// HTTP + regex as fallback when the DOM shifts.
type XTrendsSource struct {
	URL     string // override for tests
	Timeout time.Duration
	Vocab   Vocabulary
}

func NewXTrendsSource(timeout time.Duration, vocab Vocabulary) *XTrendsSource {
	return &XTrendsSource{Timeout: timeout, Vocab: vocab}
}

func (x *XTrendsSource) Name() string { return "xtrends" }

type xTrend struct {
	title string
	url   string
}

func (x *XTrendsSource) Fetch(ctx context.Context, q Query) (Result, error) {
	res := Result{Source: x.Name()}

	list, collyErr := x.fetchWithColly(ctx)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(list) == 0 {
		var httpErr error
		list, httpErr = x.fetchWithHTTP(ctx)
		if len(list) == 0 {
			if httpErr != nil {
				return res, httpErr
			}
			if collyErr != nil {
				return res, &SourceUnavailableError{Source: x.Name(), Err: collyErr}
			}
			log.Printf("xtrends: got 0 trends")
			return res, nil
		}
	}

	if len(list) > xTrendsMaxItems {
		list = list[:xTrendsMaxItems]
	}

	now := time.Now().UTC()
	for rank, t := range list {
		a, ok := normalizeXTrend(t, rank, now, x.vocab())
		if !ok {
			continue // not crypto-related, not an error
		}
		if q.Limit > 0 && len(res.Articles) >= q.Limit {
			break
		}
		res.Articles = append(res.Articles, a)
	}

	log.Printf("xtrends: kept=%d of %d trends", len(res.Articles), len(list))
	return res, nil
}

func (x *XTrendsSource) vocab() Vocabulary {
	if x.Vocab != nil {
		return x.Vocab
	}
	return DefaultVocabulary()
}

func (x *XTrendsSource) target() string {
	if x.URL != "" {
		return x.URL
	}
	return xTrendsURL
}

func (x *XTrendsSource) fetchWithColly(ctx context.Context) ([]xTrend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(x.target())
	if err != nil {
		return nil, err
	}
	c := colly.NewCollector(
		colly.AllowedDomains(u.Host, "www."+u.Host),
		colly.UserAgent(defaultUserAgent),
	)
	timeout := x.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c.SetRequestTimeout(timeout)

	// A cancelled cycle aborts before the request goes out.
	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
		}
	})

	var list []xTrend
	seen := make(map[string]bool)

	c.OnHTML("body", func(e *colly.HTMLElement) {
		e.DOM.Find("a[href*='twitter.com/search'], a[href*='x.com/search']").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" || seen[href] {
				return
			}
			title := strings.TrimSpace(s.Text())
			if title == "" {
				return
			}
			seen[href] = true
			list = append(list, xTrend{title: title, url: toXSearchURL(href)})
		})
	})

	if err := c.Visit(x.target()); err != nil {
		return nil, err
	}
	return list, nil
}

// fetchWithHTTP is the fallback: plain GET then regex over the HTML.
func (x *XTrendsSource) fetchWithHTTP(ctx context.Context) ([]xTrend, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.target(), nil)
	if err != nil {
		return nil, &SourceUnavailableError{Source: x.Name(), Err: err}
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := newHTTPClient(x.Timeout).Do(req)
	if err != nil {
		return nil, &SourceUnavailableError{Source: x.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &SourceUnavailableError{Source: x.Name(), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, xTrendsMaxBody))
	if err != nil {
		return nil, &SourceUnavailableError{Source: x.Name(), Err: err}
	}
	return parseTrendLinks(string(body)), nil
}

var trendLinkRe = regexp.MustCompile(`<a\s+[^>]*href="(https://(?:twitter|x)\.com/search\?q=[^"]+)"[^>]*>([^<]+)</a>`)

func parseTrendLinks(html string) []xTrend {
	seen := make(map[string]bool)
	var list []xTrend
	for _, m := range trendLinkRe.FindAllStringSubmatch(html, -1) {
		href := m[1]
		title := strings.TrimSpace(m[2])
		if title == "" || len(title) > 200 || seen[href] {
			continue
		}
		seen[href] = true
		list = append(list, xTrend{title: title, url: toXSearchURL(href)})
	}
	return list
}

func toXSearchURL(searchURL string) string {
	if strings.Contains(searchURL, "twitter.com") {
		return "https://x.com/search?" + strings.TrimPrefix(searchURL, "https://twitter.com/search?")
	}
	return searchURL
}

// normalizeXTrend keeps crypto-related trends only. Trends carry no
// publish time, so the collection instant is used; impact decays with
// rank since the board itself is the engagement signal.
func normalizeXTrend(t xTrend, rank int, now time.Time, vocab Vocabulary) (Article, bool) {
	currencies := vocab.Extract(t.title)
	if len(currencies) == 0 && !mentionsCryptoTopic(t.title) {
		return Article{}, false
	}

	impact := 5
	switch {
	case rank < 5:
		impact = 8
	case rank < 15:
		impact = 7
	case rank < 30:
		impact = 6
	}

	sentiment, score := ScoreText(t.title)

	return Article{
		Source:         "xtrends",
		ArticleID:      strings.ToLower(t.title),
		Title:          t.title,
		Description:    "Trending on X",
		URL:            t.url,
		PublishedAt:    now,
		Currencies:     currencies,
		Sentiment:      sentiment,
		SentimentScore: score,
		Impact:         impact,
		Metadata:       map[string]any{"rank": rank + 1},
	}, true
}

func mentionsCryptoTopic(title string) bool {
	lower := strings.ToLower(title)
	for _, w := range cryptoTopicWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
