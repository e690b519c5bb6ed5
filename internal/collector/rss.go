package collector

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

const rssConcurrency = 4

// DefaultFeeds are the crypto editorial feeds polled when none are
// configured. Keys double as the feed name stored in article metadata.
func DefaultFeeds() map[string]string {
	return map[string]string{
		"coindesk":        "https://www.coindesk.com/arc/outboundfeeds/rss/",
		"cointelegraph":   "https://cointelegraph.com/rss",
		"decrypt":         "https://decrypt.co/feed",
		"theblock":        "https://www.theblock.co/rss.xml",
		"bitcoinmagazine": "https://bitcoinmagazine.com/feed",
		"cryptoslate":     "https://cryptoslate.com/feed/",
		"cryptopotato":    "https://cryptopotato.com/feed/",
		"newsbtc":         "https://www.newsbtc.com/feed/",
		"bitcoinist":      "https://bitcoinist.com/feed/",
		"ambcrypto":       "https://ambcrypto.com/feed/",
		"cryptobriefing":  "https://cryptobriefing.com/feed/",
		"beincrypto":      "https://beincrypto.com/feed/",
	}
}

// Outlets whose stories start above the baseline impact.
var (
	highImpactFeeds   = map[string]bool{"coindesk": true, "cointelegraph": true, "theblock": true, "decrypt": true}
	mediumImpactFeeds = map[string]bool{"bitcoinmagazine": true, "cryptoslate": true, "newsbtc": true}
)

// Headline markers of market-moving stories.
var highImpactKeywords = []string{
	"breaking", "sec", "regulation", "ban", "approval", "crash", "surge",
	"record", "all-time high", "ath", "hack", "exploit", "emergency", "critical",
}

// RSSSource polls a set of RSS/Atom feeds. No credentials involved.
type RSSSource struct {
	Feeds   map[string]string
	Timeout time.Duration
	Vocab   Vocabulary

	parser *gofeed.Parser
}

func NewRSSSource(feeds map[string]string, timeout time.Duration, vocab Vocabulary) *RSSSource {
	if len(feeds) == 0 {
		feeds = DefaultFeeds()
	}
	return &RSSSource{Feeds: feeds, Timeout: timeout, Vocab: vocab, parser: gofeed.NewParser()}
}

func (r *RSSSource) Name() string { return "rss" }

func (r *RSSSource) Fetch(ctx context.Context, q Query) (Result, error) {
	res := Result{Source: r.Name()}

	perFeed := 50
	if q.Limit > 0 && q.Limit < perFeed {
		perFeed = q.Limit
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, rssConcurrency)
		firstErr  error
		succeeded int
	)

	for name, feedURL := range r.Feeds {
		wg.Add(1)
		sem <- struct{}{}
		go func(name, feedURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			fctx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}
			feed, err := r.parser.ParseURLWithContext(feedURL, fctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("rss: %s: %v", name, err)
				if firstErr == nil {
					firstErr = &SourceUnavailableError{Source: "rss", Err: err}
				}
				return
			}
			succeeded++
			count := 0
			for _, item := range feed.Items {
				if count >= perFeed {
					break
				}
				a, err := normalizeFeedItem(item, name, r.vocab())
				if err != nil {
					res.Malformed++
					continue
				}
				if !q.Since.IsZero() && a.PublishedAt.Before(q.Since) {
					continue
				}
				res.Articles = append(res.Articles, a)
				count++
			}
		}(name, feedURL)
	}
	wg.Wait()

	if succeeded == 0 && firstErr != nil {
		return res, firstErr
	}

	// Feed iteration order is map order; present newest first.
	sort.SliceStable(res.Articles, func(i, j int) bool {
		return res.Articles[i].PublishedAt.After(res.Articles[j].PublishedAt)
	})
	if q.Limit > 0 && len(res.Articles) > q.Limit {
		res.Articles = res.Articles[:q.Limit]
	}

	log.Printf("rss: kept=%d malformed=%d from %d/%d feeds", len(res.Articles), res.Malformed, succeeded, len(r.Feeds))
	return res, nil
}

func (r *RSSSource) vocab() Vocabulary {
	if r.Vocab != nil {
		return r.Vocab
	}
	return DefaultVocabulary()
}

// normalizeFeedItem maps one feed entry to an Article. Impact is feed
// reputation plus a boost for breaking-news headline keywords; sentiment
// is pure lexicon.
func normalizeFeedItem(item *gofeed.Item, feedName string, vocab Vocabulary) (Article, error) {
	if item.Title == "" {
		return Article{}, malformed("title")
	}
	if item.Link == "" {
		return Article{}, malformed("url")
	}
	publishedAt := item.PublishedParsed
	if publishedAt == nil {
		publishedAt = item.UpdatedParsed
	}
	if publishedAt == nil {
		return Article{}, malformed("published timestamp")
	}

	impact := 5
	if highImpactFeeds[feedName] {
		impact = 7
	} else if mediumImpactFeeds[feedName] {
		impact = 6
	}
	titleLower := strings.ToLower(item.Title)
	for _, kw := range highImpactKeywords {
		if strings.Contains(titleLower, kw) {
			impact = clampImpact(impact + 2)
			break
		}
	}

	sentiment, score := ScoreText(item.Title + " " + item.Description)

	var author string
	if len(item.Authors) > 0 {
		author = item.Authors[0].Name
	}

	var content string
	if item.Content != "" {
		content = item.Content
	}

	return Article{
		Source:         "rss",
		ArticleID:      item.Link, // feeds rarely carry a stable guid across outlets
		Title:          item.Title,
		Description:    item.Description,
		Content:        content,
		URL:            item.Link,
		PublishedAt:    publishedAt.UTC(),
		Author:         author,
		Currencies:     vocab.Extract(item.Title + " " + item.Description),
		Sentiment:      sentiment,
		SentimentScore: score,
		Impact:         impact,
		Metadata: map[string]any{
			"feed":       feedName,
			"guid":       item.GUID,
			"categories": strings.Join(item.Categories, ","),
		},
	}, nil
}
