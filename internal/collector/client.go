package collector

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const defaultUserAgent = "CoinPulseBot/1.0"

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func readLimit(r io.Reader, n int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, n))
}

// retryAfter parses a Retry-After header (seconds form only).
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// minIntervalGate enforces a minimum spacing between calls to one
// provider. Each adapter owns its own gate; there is no shared global
// rate-limit state. Waiting respects context cancellation, and a wait
// that cannot finish before the context deadline surfaces as a
// RateLimitedError carrying the remaining interval, so callers see a
// pacing hint instead of a bare timeout.
type minIntervalGate struct {
	source   string
	interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func newMinIntervalGate(source string, interval time.Duration) *minIntervalGate {
	return &minIntervalGate{source: source, interval: interval}
}

func (g *minIntervalGate) wait(ctx context.Context) error {
	if g == nil || g.interval <= 0 {
		return nil
	}
	g.mu.Lock()
	wait := time.Until(g.last.Add(g.interval))
	g.mu.Unlock()
	if wait > 0 {
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return &RateLimitedError{Source: g.source, RetryAfter: wait}
		}
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	g.mu.Lock()
	g.last = time.Now()
	g.mu.Unlock()
	return nil
}
