package main

import (
	"context"
	"log"
	"os"

	"github.com/coinpulse/coinpulse/internal/collector"
	"github.com/coinpulse/coinpulse/internal/config"
	"github.com/coinpulse/coinpulse/internal/processor"
	"github.com/coinpulse/coinpulse/internal/scheduler"
	"github.com/coinpulse/coinpulse/internal/storage"
)

// One-shot collection entrypoint for manual runs and cron-less setups.
func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

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

	// Run one cycle and exit non-zero if every source failed.
	batch, err := coll.RunCycle(context.Background())
	if err != nil {
		log.Fatalf("cycle failed: %v", err)
	}
	if batch.Report.Total == 0 && len(batch.Report.Errors()) == len(sources) {
		log.Printf("all %d sources failed", len(sources))
		os.Exit(1)
	}
}
