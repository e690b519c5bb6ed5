package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	redditMaxBody     = 4 << 20 // 4MB, listing payloads are chunky
	redditConcurrency = 3
)

// DefaultSubreddits are the crypto communities polled when none are
// configured.
var DefaultSubreddits = []string{
	"CryptoCurrency", "Bitcoin", "ethereum", "CryptoMarkets", "altcoin",
}

// RedditSource reads the public listing JSON of each configured
// subreddit. No credentials needed; Reddit just wants a distinctive
// User-Agent.
type RedditSource struct {
	Subreddits []string
	BaseURL    string // override for tests
	Timeout    time.Duration
	Vocab      Vocabulary
}

func NewRedditSource(subreddits []string, timeout time.Duration, vocab Vocabulary) *RedditSource {
	if len(subreddits) == 0 {
		subreddits = DefaultSubreddits
	}
	return &RedditSource{Subreddits: subreddits, Timeout: timeout, Vocab: vocab}
}

func (r *RedditSource) Name() string { return "reddit" }

type redditPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Permalink     string  `json:"permalink"`
	Author        string  `json:"author"`
	CreatedUTC    float64 `json:"created_utc"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
	UpvoteRatio   float64 `json:"upvote_ratio"`
	LinkFlairText string  `json:"link_flair_text"`
	Subreddit     string  `json:"subreddit"`
	Stickied      bool    `json:"stickied"`
	Over18        bool    `json:"over_18"`
}

func (r *RedditSource) Fetch(ctx context.Context, q Query) (Result, error) {
	res := Result{Source: r.Name()}

	perSub := 25
	if q.Limit > 0 && q.Limit < perSub*len(r.Subreddits) {
		perSub = q.Limit/len(r.Subreddits) + 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, redditConcurrency)
		firstErr  error
		succeeded int
	)

	client := newHTTPClient(r.Timeout)
	for _, sub := range r.Subreddits {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub string) {
			defer wg.Done()
			defer func() { <-sem }()

			posts, err := r.fetchSubreddit(ctx, client, sub, perSub)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("reddit: r/%s: %v", sub, err)
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			succeeded++
			for _, post := range posts {
				a, err := normalizeRedditPost(post, r.vocab())
				if err != nil {
					res.Malformed++
					continue
				}
				if !q.Since.IsZero() && a.PublishedAt.Before(q.Since) {
					continue
				}
				res.Articles = append(res.Articles, a)
			}
		}(sub)
	}
	wg.Wait()

	// All subreddits down means the source is down; a partial haul is a
	// normal cycle.
	if succeeded == 0 && firstErr != nil {
		return res, firstErr
	}

	if q.Limit > 0 && len(res.Articles) > q.Limit {
		res.Articles = res.Articles[:q.Limit]
	}

	log.Printf("reddit: kept=%d malformed=%d from %d/%d subreddits", len(res.Articles), res.Malformed, succeeded, len(r.Subreddits))
	return res, nil
}

func (r *RedditSource) fetchSubreddit(ctx context.Context, client *http.Client, sub string, limit int) ([]redditPost, error) {
	base := r.BaseURL
	if base == "" {
		base = redditBaseURL
	}
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", base, sub, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &SourceUnavailableError{Source: "reddit", Err: err}
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &SourceUnavailableError{Source: "reddit", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{Source: "reddit", RetryAfter: retryAfter(resp)}
	case resp.StatusCode != http.StatusOK:
		return nil, &SourceUnavailableError{Source: "reddit", Err: fmt.Errorf("r/%s status %d", sub, resp.StatusCode)}
	}

	body, err := readLimit(resp.Body, redditMaxBody)
	if err != nil {
		return nil, &SourceUnavailableError{Source: "reddit", Err: err}
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data redditPost `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &SourceUnavailableError{Source: "reddit", Err: fmt.Errorf("decode r/%s: %w", sub, err)}
	}

	posts := make([]redditPost, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		if child.Data.Stickied {
			continue
		}
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func (r *RedditSource) vocab() Vocabulary {
	if r.Vocab != nil {
		return r.Vocab
	}
	return DefaultVocabulary()
}

// Flair phrases that decide sentiment outright before the lexicon runs.
var (
	bullishFlairs = []string{"bullish", "gains", "moon", "pump"}
	bearishFlairs = []string{"bearish", "loss", "dump", "crash"}
)

// normalizeRedditPost maps one listing entry to an Article. Impact is an
// engagement ladder over score + 2*comments; flair beats the title
// lexicon for sentiment.
func normalizeRedditPost(post redditPost, vocab Vocabulary) (Article, error) {
	if post.Title == "" {
		return Article{}, malformed("title")
	}
	if post.Permalink == "" {
		return Article{}, malformed("url")
	}
	if post.CreatedUTC <= 0 {
		return Article{}, malformed("published timestamp")
	}

	engagement := post.Score + post.NumComments*2
	impact := 5
	switch {
	case engagement > 5000:
		impact = 10
	case engagement > 2000:
		impact = 9
	case engagement > 1000:
		impact = 8
	case engagement > 500:
		impact = 7
	case engagement > 200:
		impact = 6
	}
	if post.UpvoteRatio > 0.95 {
		impact = clampImpact(impact + 1)
	}

	sentiment, score := redditSentiment(post)

	author := post.Author
	if author == "" {
		author = "[deleted]"
	}

	return Article{
		Source:         "reddit",
		ArticleID:      post.ID,
		Title:          post.Title,
		Description:    post.Selftext,
		URL:            "https://reddit.com" + post.Permalink,
		PublishedAt:    time.Unix(int64(post.CreatedUTC), 0).UTC(),
		Author:         author,
		Currencies:     vocab.Extract(post.Title + " " + post.Selftext),
		Sentiment:      sentiment,
		SentimentScore: score,
		Impact:         impact,
		Engagement: Engagement{
			Likes:    post.Score,
			Comments: post.NumComments,
		},
		Metadata: map[string]any{
			"subreddit":    post.Subreddit,
			"flair":        post.LinkFlairText,
			"upvote_ratio": post.UpvoteRatio,
			"nsfw":         post.Over18,
		},
	}, nil
}

func redditSentiment(post redditPost) (string, float64) {
	flair := strings.ToLower(post.LinkFlairText)
	for _, w := range bullishFlairs {
		if strings.Contains(flair, w) {
			return SentimentBullish, 1
		}
	}
	for _, w := range bearishFlairs {
		if strings.Contains(flair, w) {
			return SentimentBearish, -1
		}
	}
	return ScoreText(post.Title + " " + post.Selftext)
}
