package processor

import (
	"testing"

	"github.com/coinpulse/coinpulse/internal/collector"
)

func TestFingerprintStableAcrossFormatting(t *testing.T) {
	a := collector.Article{Title: "Bitcoin Breaks $100K", URL: "https://example.com/a"}
	b := collector.Article{Title: "  bitcoin   breaks $100k ", URL: "https://example.com/a"}

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("case and whitespace variants should share a fingerprint")
	}
}

func TestFingerprintDistinct(t *testing.T) {
	a := collector.Article{Title: "Bitcoin Breaks $100K", URL: "https://example.com/a"}
	b := collector.Article{Title: "Bitcoin Breaks $100K", URL: "https://example.com/b"}
	c := collector.Article{Title: "Ethereum Breaks $10K", URL: "https://example.com/a"}

	if Fingerprint(a) == Fingerprint(b) {
		t.Fatalf("different URLs should not collide")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatalf("different titles should not collide")
	}
}

func TestFingerprintIgnoresMutableFields(t *testing.T) {
	a := collector.Article{Title: "T", URL: "u", Impact: 3, Sentiment: "bullish"}
	b := collector.Article{Title: "T", URL: "u", Impact: 9, Sentiment: "bearish"}
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("fingerprint must depend on title and url only")
	}
}
