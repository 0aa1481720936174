package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"MarketPulse/internal/ingest"
	"MarketPulse/internal/model"

	"github.com/gin-gonic/gin"
)

// Ingestor runs ingestions and remembers the last report.
type Ingestor interface {
	RunNow(ctx context.Context, p ingest.Params) (*model.Report, error)
	LastReport() *model.Report
}

// Router serves the ingestion HTTP API.
type Router struct {
	ingestor Ingestor
	metrics  http.Handler
}

// NewRouter creates a router. metrics may be nil to disable /metrics.
func NewRouter(ing Ingestor, metrics http.Handler) *Router {
	return &Router{ingestor: ing, metrics: metrics}
}

// Engine builds the gin engine with all routes registered.
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", r.handleHealth)
	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics))
	}
	r.Register(engine.Group("/api"))
	return engine
}

// Register registers the API routes.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/ingest", r.handleIngest)
	group.POST("/ingest", r.handleIngest)
	group.GET("/report", r.handleReport)
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (r *Router) handleIngest(c *gin.Context) {
	p := ingest.Params{Interval: c.Query("interval")}
	var err error
	if p.Count, err = intQuery(c, "n"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid n: " + err.Error()})
		return
	}
	if p.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid limit: " + err.Error()})
		return
	}

	report, err := r.ingestor.RunNow(c.Request.Context(), p)
	if err != nil {
		log.Printf("[ERROR] [api] ingest failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (r *Router) handleReport(c *gin.Context) {
	report := r.ingestor.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no ingestion run recorded yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
