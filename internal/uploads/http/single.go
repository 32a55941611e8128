package http

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/cityworks/project-registry/internal/api/http/response"
	"github.com/cityworks/project-registry/internal/logging"
	"github.com/cityworks/project-registry/internal/uploads/service"
)

const mib = 1 << 20

var recommendations = []string{
	"put project names in the first column of the first sheet",
	"remove blank rows to speed up processing",
	"keep each project name within 200 characters",
}

func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, response.NewValidationError("file is required, select an Excel file to upload"))
		return
	}
	if err := h.validator.CheckName(fh.Filename); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.validator.CheckSize(fh.Size); err != nil {
		response.Error(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, h.validator.MaxBytes+1))
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.pipeline.Run(c.Request.Context(), filepath.Base(fh.Filename), buf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"result": out})
}

type validateReq struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
}

func (h *Handler) validate(c *gin.Context) {
	var req validateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequestError("invalid body"))
		return
	}
	if req.FileName == "" || req.FileSize <= 0 {
		response.Error(c, response.NewValidationError("file_name and file_size are required"))
		return
	}
	if err := h.validator.CheckName(req.FileName); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.validator.CheckSize(req.FileSize); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"valid":                        true,
		"file_name":                    req.FileName,
		"file_size":                    req.FileSize,
		"file_size_text":               humanize.IBytes(uint64(req.FileSize)),
		"file_type":                    req.FileType,
		"estimated_processing_seconds": EstimatedSeconds(req.FileSize),
		"recommendations":              recommendations,
	})
}

// EstimatedSeconds allows two seconds per started MiB.
func EstimatedSeconds(size int64) int64 {
	return (size + mib - 1) / mib * 2
}

func (h *Handler) uploadStats(c *gin.Context) {
	ctx := c.Request.Context()

	st, cached, err := h.stats.Stats(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	active, err := h.manager.ActiveSessions(ctx)
	if err != nil {
		logging.New(ctx).Warnf("upload_stats", "active sessions unavailable: %v", err)
		active = -1
	}

	cfg := h.manager.Config()
	response.OK(c, http.StatusOK, gin.H{
		"projects": gin.H{
			"total":        st.Total,
			"last_updated": st.LastUpdated,
			"cached":       cached,
		},
		"limits": gin.H{
			"max_file_size":      h.validator.MaxBytes,
			"max_file_size_text": humanize.IBytes(uint64(h.validator.MaxBytes)),
			"supported_formats":  h.validator.Extensions,
		},
		"chunking": gin.H{
			"default_chunk_size": cfg.DefaultChunkSize,
			"chunk_concurrency":  cfg.ChunkConcurrency,
			"session_ttl":        cfg.SessionTTL.String(),
		},
		"active_sessions": active,
		"metrics":         service.GetMetrics(),
	})
}

// importArtifact feeds a merged artifact through the same pipeline as a
// single-shot upload.
func (h *Handler) importArtifact(c *gin.Context) {
	path, err := h.manager.ArtifactPath(c.Param("file_hash"))
	if err != nil {
		response.Error(c, err)
		return
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.pipeline.Run(c.Request.Context(), filepath.Base(path), buf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"result": out})
}
