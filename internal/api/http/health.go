package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB and by the redis cache.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
	Redis     string    `json:"redis,omitempty"`
}

type ComponentHealth struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type DetailedHealthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Service    string                     `json:"service"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

type HealthHandler struct {
	serviceName string
	version     string
	db          Pinger
	redis       Pinger
	started     time.Time
}

// NewHealthHandler builds the health endpoints. A nil db or redis reports as disabled.
func NewHealthHandler(serviceName, version string, db, redis Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		db:          db,
		redis:       redis,
		started:     time.Now(),
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        probe(c.Request.Context(), h.db).Status,
		Redis:     probe(c.Request.Context(), h.redis).Status,
	})
}

// DetailedHealthCheck returns 503 when the database or redis is down.
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	db := probe(c.Request.Context(), h.db)
	rd := probe(c.Request.Context(), h.redis)

	status, code := "healthy", http.StatusOK
	if db.Status == "down" || rd.Status == "down" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, DetailedHealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Components: map[string]ComponentHealth{
			"database": db,
			"redis":    rd,
		},
	})
}

func probe(ctx context.Context, p Pinger) ComponentHealth {
	if p == nil {
		return ComponentHealth{Status: "disabled"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	start := time.Now()
	err := p.PingContext(pingCtx)
	out := ComponentHealth{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		out.Status = "down"
		out.Error = err.Error()
	}
	return out
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
	r.GET("/health/detailed", h.DetailedHealthCheck)
}
