package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coinpulse/coinpulse/internal/collector"
	"github.com/coinpulse/coinpulse/internal/config"
	"github.com/coinpulse/coinpulse/internal/processor"
	"github.com/coinpulse/coinpulse/internal/scheduler"
)

type staticSource struct {
	articles []collector.Article
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Fetch(ctx context.Context, q collector.Query) (collector.Result, error) {
	return collector.Result{Source: "static", Articles: s.articles}, nil
}

func newTestServer(t *testing.T) (*gin.Engine, *scheduler.Collector) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Now()
	src := &staticSource{articles: []collector.Article{
		{Source: "static", ArticleID: "1", Title: "Minor update", URL: "https://example.com/1", PublishedAt: now, Impact: 4},
		{Source: "static", ArticleID: "2", Title: "Major hack", URL: "https://example.com/2", PublishedAt: now.Add(-time.Minute), Impact: 9},
	}}

	coll, err := scheduler.New("@every 1h", []collector.Source{src}, processor.NewDedupIndex(time.Hour), nil, scheduler.Options{})
	if err != nil {
		t.Fatalf("init collector: %v", err)
	}
	t.Cleanup(coll.Stop)

	if _, err := coll.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	r := gin.New()
	NewServer(nil, coll, &config.Config{ImpactThreshold: 7}).RegisterRoutes(r)
	return r, coll
}

func getJSON(t *testing.T, r http.Handler, path string) map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s = %d, want 200", path, w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: bad json: %v", path, err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestServer(t)
	body := getJSON(t, r, "/health")
	if body["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestBreakingEndpointUsesLatestBatch(t *testing.T) {
	r, _ := newTestServer(t)
	body := getJSON(t, r, "/api/v1/articles/breaking")

	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	if len(data) != 1 {
		t.Fatalf("expected 1 article above threshold, got %d", len(data))
	}
	first := data[0].(map[string]any)
	if first["articleId"] != "2" {
		t.Fatalf("expected the high impact article, got %v", first["articleId"])
	}
}

func TestBreakingEndpointThresholdOverride(t *testing.T) {
	r, _ := newTestServer(t)
	body := getJSON(t, r, "/api/v1/articles/breaking?threshold=1")

	data := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("threshold=1 should include both articles, got %d", len(data))
	}
}

func TestCycleEndpoint(t *testing.T) {
	r, coll := newTestServer(t)
	body := getJSON(t, r, "/api/v1/cycle")

	data := body["data"].(map[string]any)
	if data["state"] != string(coll.State()) {
		t.Fatalf("unexpected state %v", data["state"])
	}
	report, ok := data["report"].(map[string]any)
	if !ok {
		t.Fatalf("expected a report after the first cycle")
	}
	if report["total"] != float64(2) {
		t.Fatalf("expected total 2, got %v", report["total"])
	}
}
