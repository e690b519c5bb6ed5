package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/coinpulse/coinpulse/internal/collector"
	"github.com/coinpulse/coinpulse/internal/processor"
)

// SourceChannel describes one configured provider, e.g. cryptopanic or
// reddit.
type SourceChannel struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"`
	Name    string `gorm:"size:128" json:"name"`
	BaseURL string `gorm:"size:256" json:"baseUrl"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Article is the persisted form of a normalized article. The fingerprint
// is the primary key; (source, article_id) carries the per-provider
// uniqueness invariant.
type Article struct {
	ID             string            `gorm:"primaryKey;size:40" json:"id"` // dedup fingerprint
	Source         string            `gorm:"size:64;index;uniqueIndex:idx_source_article" json:"source"`
	ArticleID      string            `gorm:"size:1024;uniqueIndex:idx_source_article" json:"articleId"`
	Title          string            `gorm:"size:512" json:"title"`
	Description    string            `gorm:"size:2048" json:"description"`
	URL            string            `gorm:"size:1024;index" json:"url"`
	Author         string            `gorm:"size:256" json:"author"`
	PublishedAt    time.Time         `gorm:"index" json:"publishedAt"`
	PublishedDate  string            `gorm:"size:10;index" json:"publishedDate"` // YYYY-MM-DD for date filters
	Currencies     string            `gorm:"size:256;index" json:"currencies"`  // comma-joined codes
	Sentiment      string            `gorm:"size:16;index" json:"sentiment"`
	SentimentScore float64           `json:"sentimentScore"`
	Impact         int               `gorm:"index" json:"impact"`
	Engagement     datatypes.JSONMap `gorm:"type:jsonb" json:"engagement"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&SourceChannel{}, &Article{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// EnsureChannel makes sure one provider row exists.
func (s *Store) EnsureChannel(code, name, baseURL string) (*SourceChannel, error) {
	ch := &SourceChannel{}
	if err := s.DB.Where("code = ?", code).First(ch).Error; err == nil {
		return ch, nil
	}

	ch = &SourceChannel{
		Code:    code,
		Name:    name,
		BaseURL: baseURL,
		Status:  "active",
	}
	if err := s.DB.Create(ch).Error; err != nil {
		return nil, err
	}
	return ch, nil
}

// toValidUTF8 guards against mixed-encoding provider text that would
// trip PostgreSQL's invalid byte sequence error.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunes caps a string by rune count so varchar limits hold even
// for multibyte provider text.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// SaveBatch persists a published batch. (source, article_id) is the
// idempotency key: an article already on disk is left untouched, which
// keeps stored articles immutable across repeat cycles.
func (s *Store) SaveBatch(articles []collector.Article) error {
	for _, a := range articles {
		row := &Article{
			ID:             processor.Fingerprint(a),
			Source:         a.Source,
			ArticleID:      a.ArticleID,
			Title:          truncateRunes(toValidUTF8(a.Title), 512),
			Description:    truncateRunes(toValidUTF8(a.Description), 2048),
			URL:            a.URL,
			Author:         truncateRunes(toValidUTF8(a.Author), 256),
			PublishedAt:    a.PublishedAt,
			PublishedDate:  a.PublishedAt.UTC().Format("2006-01-02"),
			Currencies:     strings.Join(a.Currencies, ","),
			Sentiment:      a.Sentiment,
			SentimentScore: a.SentimentScore,
			Impact:         a.Impact,
			Engagement: datatypes.JSONMap{
				"likes":    a.Engagement.Likes,
				"comments": a.Engagement.Comments,
				"shares":   a.Engagement.Shares,
			},
			Metadata: datatypes.JSONMap(a.Metadata),
		}
		if err := s.DB.Where("source = ? AND article_id = ?", a.Source, a.ArticleID).FirstOrCreate(row).Error; err != nil {
			return fmt.Errorf("save %s/%s: %w", a.Source, a.ArticleID, err)
		}
	}

	// List caches expire on their own short TTL; no invalidation scan.
	return nil
}

// ListQuery narrows ListArticles.
type ListQuery struct {
	Source    string
	Currency  string
	MinImpact int
	Sort      string // latest (default) / impact
	Limit     int
	Date      string // YYYY-MM-DD, optional
}

// ListArticles returns stored articles with a short-lived Redis cache in
// front of the database.
func (s *Store) ListArticles(q ListQuery) ([]Article, error) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 20
	}
	if q.Sort != "impact" {
		q.Sort = "latest"
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("articles:list:%s:%s:%d:%s:%d:%s", q.Source, q.Currency, q.MinImpact, q.Sort, q.Limit, q.Date)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Article
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Article
	db := s.DB.Model(&Article{})
	if q.Source != "" {
		db = db.Where("source = ?", q.Source)
	}
	if q.Currency != "" {
		// comma-joined column; match whole code at any position
		code := strings.ToUpper(q.Currency)
		db = db.Where("currencies = ? OR currencies LIKE ? OR currencies LIKE ? OR currencies LIKE ?",
			code, code+",%", "%,"+code, "%,"+code+",%")
	}
	if q.MinImpact > 0 {
		db = db.Where("impact >= ?", q.MinImpact)
	}
	if q.Date != "" {
		db = db.Where("published_date = ?", q.Date)
	}
	switch q.Sort {
	case "impact":
		db = db.Order("impact DESC").Order("published_at DESC")
	default:
		db = db.Order("published_at DESC")
	}
	if err := db.Limit(q.Limit).Find(&list).Error; err != nil {
		return nil, err
	}

	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// TrendingCurrencies aggregates symbol mentions over the last window,
// most mentioned first. Cached for five minutes.
func (s *Store) TrendingCurrencies(window time.Duration, limit int) ([]processor.CurrencyCount, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if window <= 0 {
		window = 24 * time.Hour
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("articles:trending:%d:%d", int(window.Hours()), limit)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []processor.CurrencyCount
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []struct{ Currencies string }
	since := time.Now().Add(-window)
	if err := s.DB.Model(&Article{}).
		Where("published_at >= ? AND currencies <> ''", since).
		Select("currencies").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, r := range rows {
		for _, code := range strings.Split(r.Currencies, ",") {
			if code = strings.TrimSpace(code); code != "" {
				counts[code]++
			}
		}
	}
	out := make([]processor.CurrencyCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, processor.CurrencyCount{Currency: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Currency < out[j].Currency
	})
	if len(out) > limit {
		out = out[:limit]
	}

	if s.Redis != nil && len(out) > 0 {
		if bs, err := json.Marshal(out); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, 5*time.Minute).Err()
		}
	}
	return out, nil
}
