package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const (
	pageTextMaxBody     = 1 << 20 // 1MB
	pageTextMaxPerBatch = 10
	pageTextMaxChars    = 4000
)

// PageTextClient talks to the pagetext sidecar, which renders a page in
// headless Chrome and returns the article body. Used to fill Content on
// items that arrive link-only (RSS stubs, NewsAPI truncated bodies).
type PageTextClient struct {
	BaseURL  string
	Timeout  time.Duration
	MaxChars int
}

func NewPageTextClient(baseURL string, timeout time.Duration) *PageTextClient {
	return &PageTextClient{BaseURL: baseURL, Timeout: timeout, MaxChars: pageTextMaxChars}
}

// Extract fetches the rendered body text for one page.
func (p *PageTextClient) Extract(ctx context.Context, pageURL string) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"url":      pageURL,
		"maxChars": p.MaxChars,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/extract", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := newHTTPClient(p.Timeout).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pagetext status %d", resp.StatusCode)
	}

	body, err := readLimit(resp.Body, pageTextMaxBody)
	if err != nil {
		return "", err
	}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("pagetext decode: %w", err)
	}
	if payload.Code != "ok" {
		return "", fmt.Errorf("pagetext: %s", payload.Message)
	}
	return payload.Data.Text, nil
}

// Enrich fills Content on articles that arrived without one, capped per
// batch so a large cycle cannot monopolize the browser. Returns the
// number of articles enriched. Extraction failures are logged and
// skipped; only context cancellation stops the pass early.
func (p *PageTextClient) Enrich(ctx context.Context, articles []Article) int {
	if p == nil {
		return 0
	}
	enriched := 0
	for i := range articles {
		if enriched >= pageTextMaxPerBatch {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if articles[i].Content != "" || articles[i].URL == "" {
			continue
		}
		text, err := p.Extract(ctx, articles[i].URL)
		if err != nil {
			log.Printf("pagetext: %s: %v", articles[i].URL, err)
			continue
		}
		if text == "" {
			continue
		}
		articles[i].Content = text
		enriched++
	}
	return enriched
}
