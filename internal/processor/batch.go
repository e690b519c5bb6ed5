package processor

import (
	"sort"
	"time"

	"github.com/coinpulse/coinpulse/internal/collector"
)

// SourceReport is the per-source accounting for one cycle. Every error
// is attributable; nothing is silently lost.
type SourceReport struct {
	Source     string `json:"source"`
	Fetched    int    `json:"fetched"`    // articles the adapter returned
	Malformed  int    `json:"malformed"`  // raw records dropped at normalization
	Duplicates int    `json:"duplicates"` // suppressed by the dedup index
	Error      string `json:"error,omitempty"`
}

// Report summarizes one collection cycle.
type Report struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Sources    []SourceReport `json:"sources"`
	Total      int            `json:"total"` // articles published in the batch
}

// Errors returns the failed source reports.
func (r Report) Errors() []SourceReport {
	var out []SourceReport
	for _, s := range r.Sources {
		if s.Error != "" {
			out = append(out, s)
		}
	}
	return out
}

// Batch is the deduplicated output of one cycle, ordered by published
// timestamp descending.
type Batch struct {
	Articles []collector.Article `json:"articles"`
	Report   Report              `json:"report"`
}

// Assemble merges per-source results into a batch: duplicates are
// dropped through the shared index (single-writer merge, after the
// parallel fetch has finished), then the survivors are sorted newest
// first. Inter-source order before the sort is collection order, which
// is what breaks ties between sources reporting the same story.
func Assemble(results []collector.Result, reports []SourceReport, index *DedupIndex, now time.Time) Batch {
	var articles []collector.Article

	for i, res := range results {
		for _, a := range res.Articles {
			if index.IsDuplicate(a, now) {
				reports[i].Duplicates++
				continue
			}
			articles = append(articles, a)
		}
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	return Batch{
		Articles: articles,
		Report: Report{
			Sources: reports,
			Total:   len(articles),
		},
	}
}

// HighImpact returns the articles at or above the threshold, order
// preserved (published descending). A view over the batch; no refetch.
func (b Batch) HighImpact(threshold int) []collector.Article {
	var out []collector.Article
	for _, a := range b.Articles {
		if a.Impact >= threshold {
			out = append(out, a)
		}
	}
	return out
}

// TrendingCurrencies counts symbol mentions across the batch, most
// mentioned first.
func (b Batch) TrendingCurrencies(limit int) []CurrencyCount {
	counts := make(map[string]int)
	for _, a := range b.Articles {
		for _, code := range a.Currencies {
			counts[code]++
		}
	}
	out := make([]CurrencyCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, CurrencyCount{Currency: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Currency < out[j].Currency
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type CurrencyCount struct {
	Currency string `json:"currency"`
	Count    int    `json:"count"`
}
