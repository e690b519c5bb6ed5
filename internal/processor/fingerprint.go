package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/coinpulse/coinpulse/internal/collector"
)

// Fingerprint derives the dedup key for an article: sha1 over the
// normalized title plus the URL. Two sources reporting the same story
// under the same headline and link collapse to one entry.
func Fingerprint(a collector.Article) string {
	h := sha1.New()
	h.Write([]byte(normalizeTitle(a.Title)))
	h.Write([]byte{'|'})
	h.Write([]byte(a.URL))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeTitle lowercases and collapses whitespace so trivial
// reformatting between sources does not defeat deduplication.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
