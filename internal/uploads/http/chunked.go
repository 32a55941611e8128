package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cityworks/project-registry/internal/api/http/response"
	"github.com/cityworks/project-registry/internal/uploads/domain"
)

func (h *Handler) initUpload(c *gin.Context) {
	var req domain.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequestError("invalid body"))
		return
	}

	res, err := h.manager.Initialize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if res.SkipUpload {
		status = http.StatusOK
	}
	response.OK(c, status, gin.H{"upload": res})
}

func (h *Handler) acceptChunk(c *gin.Context) {
	// a chunk can never be larger than a whole file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.manager.Config().MaxFileSize+1<<20)

	uploadID := c.PostForm("upload_id")
	if uploadID == "" {
		response.Error(c, response.NewValidationError("upload_id is required"))
		return
	}
	index, err := strconv.Atoi(c.PostForm("chunk_index"))
	if err != nil {
		response.Error(c, response.NewValidationError("chunk_index must be an integer"))
		return
	}
	claimed := int64(-1)
	if raw := c.PostForm("chunk_size"); raw != "" {
		if claimed, err = strconv.ParseInt(raw, 10, 64); err != nil {
			response.Error(c, response.NewValidationError("chunk_size must be an integer"))
			return
		}
	}

	fh, err := c.FormFile("chunk")
	if err != nil {
		response.Error(c, response.NewValidationError("chunk file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	res, err := h.manager.AcceptChunk(c.Request.Context(), uploadID, index, claimed, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"chunk": res})
}

func (h *Handler) uploadedChunks(c *gin.Context) {
	res, err := h.manager.UploadedChunks(c.Request.Context(), c.Param("upload_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"upload_id":       res.UploadID,
		"uploaded_chunks": res.UploadedChunks,
		"total_chunks":    res.TotalChunks,
	})
}

func (h *Handler) merge(c *gin.Context) {
	var req domain.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequestError("invalid body"))
		return
	}

	res, err := h.manager.Merge(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"file": res})
}

func (h *Handler) cancel(c *gin.Context) {
	uploadID := c.Param("upload_id")
	if err := h.manager.Cancel(c.Request.Context(), uploadID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"upload_id": uploadID, "state": domain.StateCancelled})
}

func (h *Handler) status(c *gin.Context) {
	res, err := h.manager.Status(c.Request.Context(), c.Param("upload_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"status": res})
}
