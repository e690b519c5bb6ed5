package storage

import (
	"strings"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"  padded  ", 10, "padded"},
		{"héllo wörld", 5, "héllo"}, // rune count, not byte count
		{"anything", 0, ""},
	}
	for _, c := range cases {
		if got := truncateRunes(c.in, c.limit); got != c.want {
			t.Fatalf("truncateRunes(%q, %d) = %q, want %q", c.in, c.limit, got, c.want)
		}
	}
}

func TestToValidUTF8(t *testing.T) {
	broken := string([]byte{'o', 'k', 0xff, 0xfe})
	got := toValidUTF8(broken)
	if !strings.HasPrefix(got, "ok") {
		t.Fatalf("valid prefix should survive, got %q", got)
	}
	if strings.ContainsRune(got, 0xff) {
		t.Fatalf("invalid bytes should be replaced, got %q", got)
	}

	clean := "plain ascii and 中文"
	if toValidUTF8(clean) != clean {
		t.Fatalf("valid utf8 must pass through unchanged")
	}
}
