package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/cityworks/project-registry/internal/api/http"
	"github.com/cityworks/project-registry/internal/api/http/middleware"
	"github.com/cityworks/project-registry/internal/cache"
	"github.com/cityworks/project-registry/internal/ingest"
	projecthttp "github.com/cityworks/project-registry/internal/projects/http"
	"github.com/cityworks/project-registry/internal/projects/repository"
	projectservice "github.com/cityworks/project-registry/internal/projects/service"
	"github.com/cityworks/project-registry/internal/spreadsheet"
	uploadhttp "github.com/cityworks/project-registry/internal/uploads/http"
	uploadservice "github.com/cityworks/project-registry/internal/uploads/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string

	DB *sql.DB
	// Cache is nil when redis is disabled.
	Cache *cache.RedisCache
	TTLs  projectservice.TTLs

	Uploads    *uploadservice.Manager
	Validator  *spreadsheet.Validator
	Parser     *spreadsheet.Parser
	ChunkRate  float64
	ChunkBurst int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.ErrorLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	var (
		dbPing    httpapi.Pinger
		redisPing httpapi.Pinger
		inspector httpapi.CacheInspector
		c         cache.Cache = cache.Nop{}
	)
	if dep.DB != nil {
		dbPing = dep.DB
	}
	if dep.Cache != nil {
		redisPing = httpapi.PingFunc(dep.Cache.Ping)
		inspector = dep.Cache
		c = dep.Cache
	}

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dbPing, redisPing)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	store := repository.NewProjectRepository(dep.DB)
	projects := projectservice.NewProjectService(store, c, dep.TTLs)
	importer := projectservice.NewImportService(store, c)

	projecthttp.New(projects).Register(api.Group("/projects"))

	pipeline := ingest.NewPipeline(dep.Validator, dep.Parser, importer)
	uploadhttp.New(dep.Uploads, pipeline, dep.Validator, projects).
		Register(api, middleware.RateLimit(dep.ChunkRate, dep.ChunkBurst))

	httpapi.NewCacheHandler(inspector).RegisterRoutes(api.Group("/cache"))

	return r
}
