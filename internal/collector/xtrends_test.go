package collector

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseTrendLinks(t *testing.T) {
	html := `
	<ol>
	  <li><a class="trend-link" href="https://twitter.com/search?q=%23Bitcoin">#Bitcoin</a></li>
	  <li><a href="https://x.com/search?q=Ethereum">Ethereum</a></li>
	  <li><a href="https://twitter.com/search?q=%23Bitcoin">#Bitcoin</a></li>
	  <li><a href="https://example.com/elsewhere">Unrelated</a></li>
	</ol>`

	list := parseTrendLinks(html)
	if len(list) != 2 {
		t.Fatalf("expected 2 unique trends, got %d (%v)", len(list), list)
	}
	if list[0].title != "#Bitcoin" || list[1].title != "Ethereum" {
		t.Fatalf("unexpected titles: %+v", list)
	}
	if list[0].url != "https://x.com/search?q=%23Bitcoin" {
		t.Fatalf("twitter.com links should rewrite to x.com, got %q", list[0].url)
	}
}

func TestToXSearchURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://twitter.com/search?q=btc", "https://x.com/search?q=btc"},
		{"https://x.com/search?q=btc", "https://x.com/search?q=btc"},
	}
	for _, c := range cases {
		if got := toXSearchURL(c.in); got != c.want {
			t.Fatalf("toXSearchURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeXTrend(t *testing.T) {
	now := time.Now().UTC()
	vocab := DefaultVocabulary()

	if _, ok := normalizeXTrend(xTrend{title: "#Eurovision", url: "u"}, 0, now, vocab); ok {
		t.Fatalf("non-crypto trend should be dropped")
	}

	a, ok := normalizeXTrend(xTrend{title: "#Bitcoin", url: "https://x.com/search?q=%23Bitcoin"}, 0, now, vocab)
	if !ok {
		t.Fatalf("crypto trend should be kept")
	}
	if len(a.Currencies) != 1 || a.Currencies[0] != "BTC" {
		t.Fatalf("expected [BTC], got %v", a.Currencies)
	}
	if !a.PublishedAt.Equal(now) {
		t.Fatalf("trends should carry the collection instant")
	}

	// Topic words keep a trend even without a symbol match.
	if _, ok := normalizeXTrend(xTrend{title: "DeFi summer"}, 3, now, vocab); !ok {
		t.Fatalf("topic-word trend should be kept")
	}
}

func TestXTrendsFetchCancelled(t *testing.T) {
	src := NewXTrendsSource(time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Fetch(ctx, Query{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled cycle should abort the scrape, got %v", err)
	}
}

func TestNormalizeXTrendRankImpact(t *testing.T) {
	now := time.Now().UTC()
	vocab := DefaultVocabulary()

	cases := []struct {
		rank int
		want int
	}{
		{0, 8},
		{4, 8},
		{5, 7},
		{14, 7},
		{15, 6},
		{29, 6},
		{30, 5},
	}
	for _, c := range cases {
		a, ok := normalizeXTrend(xTrend{title: "#Bitcoin"}, c.rank, now, vocab)
		if !ok {
			t.Fatalf("rank %d: trend dropped", c.rank)
		}
		if a.Impact != c.want {
			t.Fatalf("rank %d: impact = %d, want %d", c.rank, a.Impact, c.want)
		}
	}
}
