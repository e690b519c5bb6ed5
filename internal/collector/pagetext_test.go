package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func pageTextServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/extract" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			URL      string `json:"url"`
			MaxChars int    `json:"maxChars"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			t.Errorf("bad extract request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code":    "ok",
			"message": "success",
			"data":    map[string]any{"text": text, "chars": len(text)},
		})
	}))
}

func TestPageTextExtract(t *testing.T) {
	srv := pageTextServer(t, "rendered body")
	defer srv.Close()

	client := NewPageTextClient(srv.URL, 5*time.Second)
	text, err := client.Extract(context.Background(), "https://example.com/story")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if text != "rendered body" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestPageTextExtractFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": "extract_failed", "message": "no article text found"})
	}))
	defer srv.Close()

	client := NewPageTextClient(srv.URL, 5*time.Second)
	if _, err := client.Extract(context.Background(), "https://example.com/story"); err == nil {
		t.Fatalf("expected error on extract_failed response")
	}
}

func TestPageTextEnrichFillsLinkOnlyItems(t *testing.T) {
	srv := pageTextServer(t, "full article text")
	defer srv.Close()

	client := NewPageTextClient(srv.URL, 5*time.Second)
	articles := []Article{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "b", URL: "https://example.com/b", Content: "already has a body"},
		{Title: "c", URL: ""},
	}

	n := client.Enrich(context.Background(), articles)
	if n != 1 {
		t.Fatalf("expected 1 enriched, got %d", n)
	}
	if articles[0].Content != "full article text" {
		t.Fatalf("link-only item should be filled, got %q", articles[0].Content)
	}
	if articles[1].Content != "already has a body" {
		t.Fatalf("existing content must not be overwritten")
	}
	if articles[2].Content != "" {
		t.Fatalf("items without a URL must be skipped")
	}
}

func TestPageTextEnrichBatchCap(t *testing.T) {
	srv := pageTextServer(t, "text")
	defer srv.Close()

	client := NewPageTextClient(srv.URL, 5*time.Second)
	articles := make([]Article, pageTextMaxPerBatch+5)
	for i := range articles {
		articles[i] = Article{Title: "t", URL: "https://example.com/p"}
	}

	if n := client.Enrich(context.Background(), articles); n != pageTextMaxPerBatch {
		t.Fatalf("expected cap at %d, got %d", pageTextMaxPerBatch, n)
	}
}

func TestPageTextEnrichCancelled(t *testing.T) {
	srv := pageTextServer(t, "text")
	defer srv.Close()

	client := NewPageTextClient(srv.URL, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles := []Article{{Title: "a", URL: "https://example.com/a"}}
	if n := client.Enrich(ctx, articles); n != 0 {
		t.Fatalf("cancelled enrichment should do nothing, got %d", n)
	}
}

func TestPageTextEnrichNilClient(t *testing.T) {
	var client *PageTextClient
	if n := client.Enrich(context.Background(), []Article{{Title: "a", URL: "u"}}); n != 0 {
		t.Fatalf("nil client must be a no-op, got %d", n)
	}
}
