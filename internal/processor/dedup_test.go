package processor

import (
	"testing"
	"time"

	"github.com/coinpulse/coinpulse/internal/collector"
)

func TestDedupIndexFirstSightThenDuplicate(t *testing.T) {
	idx := NewDedupIndex(48 * time.Hour)
	now := time.Now()
	a := collector.Article{Title: "Story", URL: "https://example.com/s"}

	if idx.IsDuplicate(a, now) {
		t.Fatalf("first sight must not be a duplicate")
	}
	if !idx.IsDuplicate(a, now.Add(time.Minute)) {
		t.Fatalf("second sight within the window must be a duplicate")
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", idx.Len())
	}
}

func TestDedupIndexWindowExpiry(t *testing.T) {
	idx := NewDedupIndex(48 * time.Hour)
	now := time.Now()
	a := collector.Article{Title: "Story", URL: "https://example.com/s"}

	if idx.IsDuplicate(a, now) {
		t.Fatalf("first sight must not be a duplicate")
	}
	// Past the horizon the entry is pruned and the story reads as new.
	if idx.IsDuplicate(a, now.Add(49*time.Hour)) {
		t.Fatalf("sighting after the window must not be a duplicate")
	}
	if idx.Len() != 1 {
		t.Fatalf("expired entry should be pruned, got %d live", idx.Len())
	}
}

func TestDedupIndexDistinctStories(t *testing.T) {
	idx := NewDedupIndex(time.Hour)
	now := time.Now()

	a := collector.Article{Title: "Story A", URL: "https://example.com/a"}
	b := collector.Article{Title: "Story B", URL: "https://example.com/b"}
	if idx.IsDuplicate(a, now) || idx.IsDuplicate(b, now) {
		t.Fatalf("distinct stories must not collide")
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}
}
