package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coinpulse/coinpulse/internal/config"
	"github.com/coinpulse/coinpulse/internal/scheduler"
	"github.com/coinpulse/coinpulse/internal/storage"
)

type Server struct {
	store     *storage.Store
	collector *scheduler.Collector
	cfg       *config.Config
}

func NewServer(store *storage.Store, collector *scheduler.Collector, cfg *config.Config) *Server {
	return &Server{store: store, collector: collector, cfg: cfg}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
		v1.GET("/articles/breaking", s.listBreaking)
		v1.GET("/trending", s.trending)
		v1.GET("/cycle", s.latestCycle)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": s.collector.State()})
}

func (s *Server) listArticles(c *gin.Context) {
	q := storage.ListQuery{
		Source:   c.Query("source"),
		Currency: c.Query("currency"),
		Sort:     c.DefaultQuery("sort", "latest"),
		Date:     c.Query("date"),
	}
	q.Limit = atoiDefault(c.DefaultQuery("limit", "20"), 20)
	q.MinImpact = atoiDefault(c.Query("min_impact"), 0)

	items, err := s.store.ListArticles(q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

// listBreaking is the high-impact view over the latest published batch,
// derived without refetching. Falls back to the store before the first
// cycle has run.
func (s *Server) listBreaking(c *gin.Context) {
	threshold := atoiDefault(c.Query("threshold"), s.cfg.ImpactThreshold)

	if batch := s.collector.Latest(); batch != nil {
		c.JSON(http.StatusOK, gin.H{
			"code":    "ok",
			"message": "success",
			"data":    batch.HighImpact(threshold),
		})
		return
	}

	items, err := s.store.ListArticles(storage.ListQuery{MinImpact: threshold, Limit: 50})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) trending(c *gin.Context) {
	hours := atoiDefault(c.DefaultQuery("hours", "24"), 24)
	limit := atoiDefault(c.DefaultQuery("limit", "10"), 10)

	counts, err := s.store.TrendingCurrencies(time.Duration(hours)*time.Hour, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    counts,
	})
}

// latestCycle exposes the most recent cycle report: per-source counts,
// errors, and the current state.
func (s *Server) latestCycle(c *gin.Context) {
	payload := gin.H{"state": s.collector.State()}
	if batch := s.collector.Latest(); batch != nil {
		payload["report"] = batch.Report
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    payload,
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
