package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/cityworks/project-registry/internal/ingest"
	projectdomain "github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/spreadsheet"
	"github.com/cityworks/project-registry/internal/uploads/service"
)

// StatsReader supplies the project totals shown by the upload stats endpoint.
type StatsReader interface {
	Stats(ctx context.Context) (*projectdomain.Stats, bool, error)
}

// Handler serves both the chunked protocol and the single-shot upload.
type Handler struct {
	manager   *service.Manager
	pipeline  *ingest.Pipeline
	validator *spreadsheet.Validator
	stats     StatsReader
}

func New(manager *service.Manager, pipeline *ingest.Pipeline, validator *spreadsheet.Validator, stats StatsReader) *Handler {
	return &Handler{manager: manager, pipeline: pipeline, validator: validator, stats: stats}
}

// Register attaches upload routes. chunkMiddleware runs only in front of chunk writes.
func (h *Handler) Register(rg *gin.RouterGroup, chunkMiddleware ...gin.HandlerFunc) {
	up := rg.Group("/upload")

	up.POST("", h.upload)
	up.POST("/validate", h.validate)
	up.GET("/stats", h.uploadStats)
	up.POST("/import/:file_hash", h.importArtifact)

	chunk := up.Group("/chunk")
	chunk.POST("/init", h.initUpload)
	chunk.POST("", append(chunkMiddleware, h.acceptChunk)...)
	chunk.GET("/:upload_id/chunks", h.uploadedChunks)
	chunk.GET("/:upload_id/status", h.status)
	chunk.POST("/merge", h.merge)
	chunk.DELETE("/:upload_id", h.cancel)
}
