package collector

import (
	"sort"
	"strings"
)

// Vocabulary maps uppercase names/tickers found in text to canonical
// currency codes, e.g. BITCOIN -> BTC.
type Vocabulary map[string]string

// DefaultVocabulary covers the majors. Extend via SYMBOL_VOCAB config.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		"BITCOIN":      "BTC",
		"BTC":          "BTC",
		"ETHEREUM":     "ETH",
		"ETH":          "ETH",
		"BINANCE COIN": "BNB",
		"BNB":          "BNB",
		"CARDANO":      "ADA",
		"ADA":          "ADA",
		"SOLANA":       "SOL",
		"SOL":          "SOL",
		"XRP":          "XRP",
		"RIPPLE":       "XRP",
		"DOGECOIN":     "DOGE",
		"DOGE":         "DOGE",
		"POLKADOT":     "DOT",
		"DOT":          "DOT",
		"POLYGON":      "MATIC",
		"MATIC":        "MATIC",
		"AVALANCHE":    "AVAX",
		"AVAX":         "AVAX",
		"CHAINLINK":    "LINK",
		"LINK":         "LINK",
		"UNISWAP":      "UNI",
		"UNI":          "UNI",
	}
}

// Merge overlays pairs onto v. Keys are uppercased.
func (v Vocabulary) Merge(pairs map[string]string) {
	for name, code := range pairs {
		name = strings.ToUpper(strings.TrimSpace(name))
		code = strings.ToUpper(strings.TrimSpace(code))
		if name == "" || code == "" {
			continue
		}
		v[name] = code
	}
}

// Extract returns the deduplicated currency codes mentioned in text,
// sorted for stable output. Matching is whole-word to keep short tickers
// like ADA or DOT from firing inside ordinary words.
func (v Vocabulary) Extract(text string) []string {
	if text == "" {
		return nil
	}
	upper := strings.ToUpper(text)
	codes := make(map[string]struct{})
	for name, code := range v {
		if containsWord(upper, name) {
			codes[code] = struct{}{}
		}
	}
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	for code := range codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// containsWord reports whether needle occurs in haystack bounded by
// non-alphanumeric runes on both sides.
func containsWord(haystack, needle string) bool {
	for start := 0; ; {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(needle)
		leftOK := idx == 0 || !isAlnum(haystack[idx-1])
		rightOK := end == len(haystack) || !isAlnum(haystack[end])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
