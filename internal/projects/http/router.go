package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/stats", h.stats)
	rg.GET("/search/:keyword", h.search)
	rg.GET("/:id", h.get)
	rg.DELETE("/:id", h.delete)
}
