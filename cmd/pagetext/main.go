package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gin-gonic/gin"
)

const (
	extractTimeout      = 20 * time.Second
	defaultExtractChars = 2000
	maxExtractChars     = 8000
)

var errEmptyPage = errors.New("no article text found")

// extractor owns the shared headless browser. Per-request work runs in
// a timeout context derived from it.
type extractor struct {
	browser context.Context
}

// pagetext renders article URLs in headless Chrome and returns the body
// text. News sites increasingly ship empty shells without JS, so plain
// HTTP fetches come back hollow; collection cycles call this service to
// fill in link-only items.
func main() {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Warm up so the first request does not pay the launch cost.
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: chromedp warmup failed: %v", err)
	}

	ex := &extractor{browser: browserCtx}

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/extract", ex.handleExtract)

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("pagetext listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

func (e *extractor) handleExtract(c *gin.Context) {
	var req struct {
		URL      string `json:"url" binding:"required"`
		MaxChars int    `json:"maxChars"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": err.Error(),
		})
		return
	}
	if req.MaxChars <= 0 || req.MaxChars > maxExtractChars {
		req.MaxChars = defaultExtractChars
	}

	text, err := e.extract(req.URL, req.MaxChars)
	if err != nil {
		log.Printf("extract error: %v (url=%s)", err, req.URL)
		c.JSON(http.StatusOK, gin.H{
			"code":    "extract_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data": gin.H{
			"text":  text,
			"chars": len([]rune(text)),
		},
	})
}

func (e *extractor) extract(pageURL string, maxChars int) (string, error) {
	ctx, cancel := context.WithTimeout(e.browser, extractTimeout)
	defer cancel()

	var text string
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(articleTextJS, &text),
	)
	if err != nil {
		return "", err
	}

	text = tidyText(text)
	if text == "" {
		return "", errEmptyPage
	}

	// Truncate by runes so multibyte text is never cut mid-character.
	rs := []rune(text)
	if len(rs) > maxChars {
		text = string(rs[:maxChars]) + "…"
	}
	return text, nil
}

// articleTextJS collects paragraph text from candidate article
// containers and keeps whichever yields the most, falling back to long
// paragraphs page-wide when no container stands out.
const articleTextJS = `(function () {
  function paragraphsIn(root, minLen) {
    var ps = root.querySelectorAll("p");
    var parts = [];
    for (var i = 0; i < ps.length; i++) {
      var t = (ps[i].innerText || "").trim();
      if (t.length >= minLen) parts.push(t);
    }
    return parts.join("\n\n");
  }

  var roots = document.querySelectorAll(
    "article, main, [itemprop='articleBody'], .post-content, .entry-content, .article__content"
  );
  var best = "";
  for (var i = 0; i < roots.length; i++) {
    var joined = paragraphsIn(roots[i], 30);
    if (joined.length > best.length) best = joined;
  }

  if (best.length < 200) {
    var fallback = paragraphsIn(document, 60);
    if (fallback.length > 6000) fallback = fallback.slice(0, 6000);
    if (fallback.length > best.length) best = fallback;
  }

  return best.trim();
})();`

func tidyText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
