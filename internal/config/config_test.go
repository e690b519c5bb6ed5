package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.AppPort != "9000" {
		t.Fatalf("default port = %q, want 9000", cfg.AppPort)
	}
	if cfg.CronSpec != "*/15 * * * *" {
		t.Fatalf("default cron = %q", cfg.CronSpec)
	}
	if !cfg.CryptoPanicEnabled || !cfg.RedditEnabled || !cfg.RSSEnabled {
		t.Fatalf("cryptopanic, reddit and rss should default on")
	}
	if cfg.NewsAPIEnabled || cfg.XTrendsEnabled {
		t.Fatalf("keyed and scraped sources should default off")
	}
	if cfg.ImpactThreshold != 7 {
		t.Fatalf("default impact threshold = %d, want 7", cfg.ImpactThreshold)
	}
	if cfg.DedupWindow != 48*time.Hour {
		t.Fatalf("default dedup window = %s, want 48h", cfg.DedupWindow)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("default request timeout = %s, want 10s", cfg.RequestTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("NEWSAPI_ENABLED", "true")
	t.Setenv("NEWSAPI_API_KEY", "k")
	t.Setenv("RSS_ENABLED", "off")
	t.Setenv("IMPACT_THRESHOLD", "9")
	t.Setenv("REDDIT_SUBREDDITS", "Bitcoin, ethereum ,, CryptoMarkets")

	cfg := Load()

	if cfg.AppPort != "8080" {
		t.Fatalf("port override = %q", cfg.AppPort)
	}
	if !cfg.NewsAPIEnabled || cfg.NewsAPIKey != "k" {
		t.Fatalf("newsapi override not applied")
	}
	if cfg.RSSEnabled {
		t.Fatalf("rss should be disabled by 'off'")
	}
	if cfg.ImpactThreshold != 9 {
		t.Fatalf("threshold override = %d", cfg.ImpactThreshold)
	}
	want := []string{"Bitcoin", "ethereum", "CryptoMarkets"}
	if len(cfg.RedditSubreddits) != len(want) {
		t.Fatalf("subreddits = %v, want %v", cfg.RedditSubreddits, want)
	}
	for i, s := range want {
		if cfg.RedditSubreddits[i] != s {
			t.Fatalf("subreddits[%d] = %q, want %q", i, cfg.RedditSubreddits[i], s)
		}
	}
}

func TestParsePairs(t *testing.T) {
	got := parsePairs("ARBITRUM:ARB, SHIBA : SHIB ,PEPE,,:")
	if got["ARBITRUM"] != "ARB" || got["SHIBA"] != "SHIB" {
		t.Fatalf("unexpected pairs: %v", got)
	}
	// A bare token maps to itself.
	if got["PEPE"] != "PEPE" {
		t.Fatalf("bare token should map to itself, got %v", got)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 pairs, got %v", got)
	}
}

func TestParseFeedPairs(t *testing.T) {
	got := parseFeedPairs("coindesk=https://coindesk.com/rss,broken,decrypt=https://decrypt.co/feed")
	if len(got) != 2 {
		t.Fatalf("expected 2 feeds, got %v", got)
	}
	if got["coindesk"] != "https://coindesk.com/rss" {
		t.Fatalf("unexpected url for coindesk: %q", got["coindesk"])
	}
	if got["decrypt"] != "https://decrypt.co/feed" {
		t.Fatalf("unexpected url for decrypt: %q", got["decrypt"])
	}
}

func TestGetEnvBool(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"1", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"0", true, false},
		{"no", true, false},
		{"", true, true},
		{"", false, false},
		{"weird", true, true},
	}
	for _, c := range cases {
		t.Setenv("TEST_BOOL_KEY", c.val)
		if got := getEnvBool("TEST_BOOL_KEY", c.def); got != c.want {
			t.Fatalf("getEnvBool(%q, %v) = %v, want %v", c.val, c.def, got, c.want)
		}
	}
}
