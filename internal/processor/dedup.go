package processor

import (
	"sync"
	"time"

	"github.com/coinpulse/coinpulse/internal/collector"
)

// DefaultDedupWindow bounds how long a fingerprint suppresses repeats.
const DefaultDedupWindow = 48 * time.Hour

// DedupIndex is a bounded-time fingerprint index shared across all
// adapter results within a cycle (and across cycles). First sight
// inserts and returns false; repeats within the window return true.
// Entries past the horizon are pruned so memory stays bounded.
type DedupIndex struct {
	horizon time.Duration

	mu   sync.Mutex
	seen map[string]time.Time // fingerprint -> first seen
}

func NewDedupIndex(horizon time.Duration) *DedupIndex {
	if horizon <= 0 {
		horizon = DefaultDedupWindow
	}
	return &DedupIndex{horizon: horizon, seen: make(map[string]time.Time)}
}

// IsDuplicate reports whether the article was already seen within the
// window, inserting it on first sight. First-seen by collection order
// wins; later duplicates are discarded by the caller.
func (d *DedupIndex) IsDuplicate(a collector.Article, now time.Time) bool {
	return d.Seen(Fingerprint(a), now)
}

// Seen is IsDuplicate over a precomputed fingerprint.
func (d *DedupIndex) Seen(fp string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune(now)

	if first, ok := d.seen[fp]; ok && now.Sub(first) < d.horizon {
		return true
	}
	d.seen[fp] = now
	return false
}

// Len returns the number of live entries. Test hook and stats.
func (d *DedupIndex) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *DedupIndex) prune(now time.Time) {
	for fp, first := range d.seen {
		if now.Sub(first) >= d.horizon {
			delete(d.seen, fp)
		}
	}
}
