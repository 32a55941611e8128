package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cityworks/project-registry/internal/api/http/response"
	"github.com/cityworks/project-registry/internal/projects/domain"
)

func (h *Handler) list(c *gin.Context) {
	page, size, ok := paging(c)
	if !ok {
		return
	}
	q := domain.ListQuery{Page: page, PageSize: size, Search: c.Query("search")}

	res, cached, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"projects":   res.Projects,
		"pagination": res.Pagination,
		"cached":     cached,
	})
}

func (h *Handler) search(c *gin.Context) {
	page, size, ok := paging(c)
	if !ok {
		return
	}
	keyword := c.Param("keyword")

	res, cached, err := h.svc.Search(c.Request.Context(), keyword, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"keyword":    keyword,
		"projects":   res.Projects,
		"pagination": res.Pagination,
		"cached":     cached,
	})
}

func (h *Handler) stats(c *gin.Context) {
	st, cached, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"total":        st.Total,
		"last_updated": st.LastUpdated,
		"cached":       cached,
	})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	p, cached, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"project": p, "cached": cached})
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequestError("invalid body"))
		return
	}

	p, err := h.svc.Create(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"project": p})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	p, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"project": p})
}

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Error(c, response.NewValidationError("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// paging reads page and page_size. Missing values fall back to the defaults
// applied by domain.ListQuery.Normalize.
func paging(c *gin.Context) (int, int, bool) {
	page, err := queryInt(c, "page")
	if err != nil {
		response.Error(c, response.NewValidationError(err.Error()))
		return 0, 0, false
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		response.Error(c, response.NewValidationError(err.Error()))
		return 0, 0, false
	}
	return page, size, true
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
