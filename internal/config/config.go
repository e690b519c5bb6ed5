package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec string

	// Per-source switches and credentials. A source enabled without its
	// required credential surfaces a ConfigError in the cycle report but
	// never stops the other sources.
	CryptoPanicEnabled bool
	CryptoPanicAPIKey  string
	NewsAPIEnabled     bool
	NewsAPIKey         string
	RedditEnabled      bool
	RedditSubreddits   []string
	RSSEnabled         bool
	RSSFeeds           map[string]string // name -> url, empty means defaults
	XTrendsEnabled     bool

	SymbolVocab map[string]string // merged over the built-in vocabulary

	PageTextURL string // base URL of the pagetext service, empty disables enrichment

	ImpactThreshold  int
	DedupWindow      time.Duration
	RequestTimeout   time.Duration
	MaxConcurrent    int
	FetchLimit       int
	CollectionWindow time.Duration

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=coinpulse password=coinpulse dbname=coinpulse port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:    getEnv("CRON_SPEC", "*/15 * * * *"),

		CryptoPanicEnabled: getEnvBool("CRYPTOPANIC_ENABLED", true),
		CryptoPanicAPIKey:  os.Getenv("CRYPTOPANIC_API_KEY"),
		NewsAPIEnabled:     getEnvBool("NEWSAPI_ENABLED", false),
		NewsAPIKey:         os.Getenv("NEWSAPI_API_KEY"),
		RedditEnabled:      getEnvBool("REDDIT_ENABLED", true),
		RedditSubreddits:   splitCSV(os.Getenv("REDDIT_SUBREDDITS")),
		RSSEnabled:         getEnvBool("RSS_ENABLED", true),
		RSSFeeds:           parseFeedPairs(os.Getenv("RSS_FEEDS")),
		XTrendsEnabled:     getEnvBool("XTRENDS_ENABLED", false),

		SymbolVocab: parsePairs(os.Getenv("SYMBOL_VOCAB")),

		PageTextURL: os.Getenv("PAGETEXT_URL"),

		ImpactThreshold:  getEnvInt("IMPACT_THRESHOLD", 7),
		DedupWindow:      time.Duration(getEnvInt("DEDUP_WINDOW_HOURS", 48)) * time.Hour,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 10)) * time.Second,
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT_SOURCES", 3),
		FetchLimit:       getEnvInt("FETCH_LIMIT", 50),
		CollectionWindow: time.Duration(getEnvInt("COLLECTION_WINDOW_HOURS", 24)) * time.Hour,

		BasicAuthUser: os.Getenv("APP_BASIC_USER"),
		BasicAuthPass: os.Getenv("APP_BASIC_PASS"),
	}

	log.Printf("config loaded: port=%s cron=%s sources=[cryptopanic=%t newsapi=%t reddit=%t rss=%t xtrends=%t]",
		cfg.AppPort, cfg.CronSpec,
		cfg.CryptoPanicEnabled, cfg.NewsAPIEnabled, cfg.RedditEnabled, cfg.RSSEnabled, cfg.XTrendsEnabled)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parsePairs reads "NAME:CODE,NAME:CODE" lists.
func parsePairs(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, code, ok := strings.Cut(part, ":")
		if !ok {
			name, code = part, part
		}
		name, code = strings.TrimSpace(name), strings.TrimSpace(code)
		if name != "" && code != "" {
			out[name] = code
		}
	}
	return out
}

// parseFeedPairs reads "name=url,name=url" lists. URLs contain colons,
// hence '=' as the separator here.
func parseFeedPairs(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, feedURL, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name, feedURL = strings.TrimSpace(name), strings.TrimSpace(feedURL)
		if name != "" && feedURL != "" {
			out[name] = feedURL
		}
	}
	return out
}
