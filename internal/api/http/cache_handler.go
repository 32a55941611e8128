package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cityworks/project-registry/internal/api/http/response"
	"github.com/cityworks/project-registry/internal/cache"
	"github.com/cityworks/project-registry/internal/logging"
)

const listedKeys = 20

// CacheInspector is the introspection side of the cache backend.
type CacheInspector interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (cache.BackendStats, error)
	Keys(ctx context.Context, limit int) ([]cache.KeyInfo, error)
	FlushProjects(ctx context.Context) (int64, error)
	FlushAll(ctx context.Context) error
}

// CacheHandler exposes cache stats and maintenance. Unlike normal cache use,
// backend errors surface here as 500s.
type CacheHandler struct {
	inspector CacheInspector
}

func NewCacheHandler(inspector CacheInspector) *CacheHandler {
	return &CacheHandler{inspector: inspector}
}

func (h *CacheHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(h.requireBackend)
	rg.GET("/stats", h.stats)
	rg.GET("/keys", h.keys)
	rg.GET("/ping", h.ping)
	rg.DELETE("/projects", h.flushProjects)
	rg.DELETE("/all", h.flushAll)
}

func (h *CacheHandler) requireBackend(c *gin.Context) {
	if h.inspector == nil {
		response.Error(c, response.NewServiceUnavailableError("cache backend is disabled"))
		return
	}
	c.Next()
}

func (h *CacheHandler) stats(c *gin.Context) {
	st, err := h.inspector.Stats(c.Request.Context())
	if err != nil {
		logging.New(c.Request.Context()).Error("cache_stats", err)
		response.Error(c, response.NewInternalError("failed to read cache stats"))
		return
	}
	m := cache.GetMetrics()
	response.OK(c, http.StatusOK, gin.H{
		"backend":  st,
		"metrics":  m,
		"hit_rate": m.HitRate(),
	})
}

func (h *CacheHandler) keys(c *gin.Context) {
	keys, err := h.inspector.Keys(c.Request.Context(), listedKeys)
	if err != nil {
		logging.New(c.Request.Context()).Error("cache_keys", err)
		response.Error(c, response.NewInternalError("failed to list cache keys"))
		return
	}
	response.OK(c, http.StatusOK, gin.H{"keys": keys, "count": len(keys), "limit": listedKeys})
}

func (h *CacheHandler) ping(c *gin.Context) {
	start := time.Now()
	if err := h.inspector.Ping(c.Request.Context()); err != nil {
		logging.New(c.Request.Context()).Error("cache_ping", err)
		response.Error(c, response.NewInternalError("cache backend unreachable"))
		return
	}
	response.OK(c, http.StatusOK, gin.H{"pong": true, "latency_ms": time.Since(start).Milliseconds()})
}

func (h *CacheHandler) flushProjects(c *gin.Context) {
	n, err := h.inspector.FlushProjects(c.Request.Context())
	if err != nil {
		logging.New(c.Request.Context()).Error("cache_flush_projects", err)
		response.Error(c, response.NewInternalError("failed to clear project cache"))
		return
	}
	response.OK(c, http.StatusOK, gin.H{"deleted": n, "message": "project cache cleared"})
}

func (h *CacheHandler) flushAll(c *gin.Context) {
	if err := h.inspector.FlushAll(c.Request.Context()); err != nil {
		logging.New(c.Request.Context()).Error("cache_flush_all", err)
		response.Error(c, response.NewInternalError("failed to clear cache"))
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "cache cleared"})
}
