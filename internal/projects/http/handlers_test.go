package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cityworks/project-registry/internal/cache"
	"github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/projects/repository/mocks"
	"github.com/cityworks/project-registry/internal/projects/service"
)

type envelope struct {
	OK         bool              `json:"ok"`
	Code       string            `json:"code"`
	Error      string            `json:"error"`
	Cached     bool              `json:"cached"`
	Project    *domain.Project   `json:"project"`
	Projects   []domain.Project  `json:"projects"`
	Pagination domain.Pagination `json:"pagination"`
	Total      int64             `json:"total"`
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	store := new(mocks.Store)
	svc := service.NewProjectService(store, cache.NewRedisCache(client, time.Second), service.DefaultTTLs())

	r := gin.New()
	New(svc).Register(r.Group("/api/v1/projects"))
	return r, store
}

func call(t *testing.T, r *gin.Engine, method, path string, body []byte) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func sample(id int64, name string) domain.Project {
	ts := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	return domain.Project{ID: id, Name: name, CreatedAt: ts, UpdatedAt: ts}
}

func TestList_ReadThrough(t *testing.T) {
	r, store := setupRouter(t)
	store.On("Count", mock.Anything, "bridge").Return(int64(1), nil).Once()
	store.On("FindPage", mock.Anything, 0, 20, "bridge").
		Return([]domain.Project{sample(7, "North Bridge")}, nil).Once()

	code, env := call(t, r, http.MethodGet, "/api/v1/projects?page=1&page_size=20&search=bridge", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.OK)
	assert.False(t, env.Cached)
	require.Len(t, env.Projects, 1)
	assert.Equal(t, "North Bridge", env.Projects[0].Name)
	assert.Equal(t, 1, env.Pagination.TotalPages)

	code, env = call(t, r, http.MethodGet, "/api/v1/projects?page=1&page_size=20&search=bridge", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Cached)
	store.AssertExpectations(t)
}

func TestList_BadPaging(t *testing.T) {
	r, _ := setupRouter(t)

	code, env := call(t, r, http.MethodGet, "/api/v1/projects?page=abc", nil)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestSearch(t *testing.T) {
	r, store := setupRouter(t)
	store.On("Count", mock.Anything, "park").Return(int64(0), nil)
	store.On("FindPage", mock.Anything, 0, domain.DefaultPageSize, "park").Return([]domain.Project{}, nil)

	code, env := call(t, r, http.MethodGet, "/api/v1/projects/search/park", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, env.Projects)

	code, env = call(t, r, http.MethodGet, "/api/v1/projects/search/%20", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.OK)
}

func TestGet(t *testing.T) {
	r, store := setupRouter(t)
	p := sample(3, "Harbor Walk")
	store.On("FindByID", mock.Anything, int64(3)).Return(&p, nil).Once()
	store.On("FindByID", mock.Anything, int64(4)).Return(nil, domain.ErrProjectNotFound)

	code, env := call(t, r, http.MethodGet, "/api/v1/projects/3", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Harbor Walk", env.Project.Name)

	_, env = call(t, r, http.MethodGet, "/api/v1/projects/3", nil)
	assert.True(t, env.Cached)

	code, env = call(t, r, http.MethodGet, "/api/v1/projects/4", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Code)

	code, _ = call(t, r, http.MethodGet, "/api/v1/projects/x", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStats(t *testing.T) {
	r, store := setupRouter(t)
	store.On("Count", mock.Anything, "").Return(int64(42), nil).Once()

	code, env := call(t, r, http.MethodGet, "/api/v1/projects/stats", nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(42), env.Total)
	assert.False(t, env.Cached)
}

func TestCreate(t *testing.T) {
	r, store := setupRouter(t)
	p := sample(9, "Library Annex")
	store.On("Create", mock.Anything, "Library Annex").Return(&p, nil).Once()
	store.On("Create", mock.Anything, "Town Hall").Return(nil, domain.ErrProjectNameExists).Once()

	code, env := call(t, r, http.MethodPost, "/api/v1/projects", []byte(`{"name":"  Library Annex "}`))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, int64(9), env.Project.ID)

	code, env = call(t, r, http.MethodPost, "/api/v1/projects", []byte(`{"name":"Town Hall"}`))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Code)

	code, _ = call(t, r, http.MethodPost, "/api/v1/projects", []byte(`{"name":"   "}`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, r, http.MethodPost, "/api/v1/projects", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDelete(t *testing.T) {
	r, store := setupRouter(t)
	p := sample(5, "Old Depot")
	store.On("DeleteByID", mock.Anything, int64(5)).Return(&p, nil).Once()
	store.On("DeleteByID", mock.Anything, int64(6)).Return(nil, domain.ErrProjectNotFound).Once()

	code, env := call(t, r, http.MethodDelete, "/api/v1/projects/5", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Old Depot", env.Project.Name)

	code, _ = call(t, r, http.MethodDelete, "/api/v1/projects/6", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
