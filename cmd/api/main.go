package main

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coinpulse/coinpulse/internal/api"
	"github.com/coinpulse/coinpulse/internal/collector"
	"github.com/coinpulse/coinpulse/internal/config"
	"github.com/coinpulse/coinpulse/internal/processor"
	"github.com/coinpulse/coinpulse/internal/scheduler"
	"github.com/coinpulse/coinpulse/internal/storage"
)

func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	sources := buildSources(cfg)
	if len(sources) == 0 {
		log.Fatal("no sources enabled")
	}
	for _, src := range sources {
		if _, err := store.EnsureChannel(src.Name(), src.Name(), ""); err != nil {
			log.Fatalf("ensure channel %s failed: %v", src.Name(), err)
		}
	}

	dedup := processor.NewDedupIndex(cfg.DedupWindow)
	opts := scheduler.Options{
		FetchLimit:    cfg.FetchLimit,
		Window:        cfg.CollectionWindow,
		SourceTimeout: cfg.RequestTimeout,
		MaxConcurrent: cfg.MaxConcurrent,
	}
	if cfg.PageTextURL != "" {
		opts.Enricher = collector.NewPageTextClient(cfg.PageTextURL, cfg.RequestTimeout)
	}
	coll, err := scheduler.New(cfg.CronSpec, sources, dedup, store, opts)
	if err != nil {
		log.Fatalf("init collector failed: %v", err)
	}
	coll.Start()
	defer coll.Stop()

	r := gin.Default()
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store, coll, cfg)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// buildSources wires one adapter per enabled provider. Vocabulary
// overrides from config are merged onto the defaults once and shared.
func buildSources(cfg *config.Config) []collector.Source {
	vocab := collector.DefaultVocabulary()
	vocab.Merge(cfg.SymbolVocab)

	var sources []collector.Source
	if cfg.CryptoPanicEnabled {
		sources = append(sources, collector.NewCryptoPanicSource(cfg.CryptoPanicAPIKey, cfg.RequestTimeout))
	}
	if cfg.NewsAPIEnabled {
		sources = append(sources, collector.NewNewsAPISource(cfg.NewsAPIKey, cfg.RequestTimeout, vocab))
	}
	if cfg.RedditEnabled {
		sources = append(sources, collector.NewRedditSource(cfg.RedditSubreddits, cfg.RequestTimeout, vocab))
	}
	if cfg.RSSEnabled {
		sources = append(sources, collector.NewRSSSource(cfg.RSSFeeds, cfg.RequestTimeout, vocab))
	}
	if cfg.XTrendsEnabled {
		sources = append(sources, collector.NewXTrendsSource(cfg.RequestTimeout, vocab))
	}
	return sources
}

// basicAuthMiddleware puts a site-wide password in front of the API.
// Enabled only when APP_BASIC_USER / APP_BASIC_PASS are set; /health
// stays open for probes.
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
