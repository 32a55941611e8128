package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cityworks/project-registry/config"
	"github.com/cityworks/project-registry/internal/bootstrap"
	"github.com/cityworks/project-registry/internal/cache"
	projectservice "github.com/cityworks/project-registry/internal/projects/service"
	"github.com/cityworks/project-registry/internal/spreadsheet"
	"github.com/cityworks/project-registry/internal/uploads/repository"
	uploadservice "github.com/cityworks/project-registry/internal/uploads/service"
	"github.com/cityworks/project-registry/internal/uploads/storage"
	"github.com/cityworks/project-registry/internal/uploads/sweep"
)

const serviceName = "project-registry"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	redisClient, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		if cfg.Upload.SessionStore == config.SessionStoreRedis {
			log.Fatalf("redis: %v", err)
		}
		log.Printf("redis unavailable, cache will miss until it recovers: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var redisCache *cache.RedisCache
	if redisClient != nil {
		redisCache = cache.NewRedisCache(redisClient, cfg.Redis.OpTimeout)
	} else {
		log.Printf("REDIS_ADDR is empty, caching disabled")
	}

	var sessions repository.SessionRepository = repository.NewMemoryRepository()
	if cfg.Upload.SessionStore == config.SessionStoreRedis {
		sessions = repository.NewRedisRepository(redisClient, cfg.Upload.SessionTTL)
	}

	files, err := storage.NewFileStore(cfg.Upload.TempDir, cfg.Upload.ArtifactDir)
	if err != nil {
		log.Fatalf("upload storage: %v", err)
	}

	manager := uploadservice.NewManager(sessions, files, uploadservice.Config{
		MaxFileSize:        cfg.Upload.MaxUploadBytes,
		AcceptedExtensions: cfg.Upload.AcceptedExtensions,
		DefaultChunkSize:   cfg.Upload.DefaultChunkSize,
		ChunkConcurrency:   cfg.Upload.ChunkConcurrency,
		SessionTTL:         cfg.Upload.SessionTTL,
	})

	sweeper := sweep.NewScheduler(manager, cfg.Upload.SweepInterval)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("sweep: %v", err)
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		DB:          db.DB,
		Cache:       redisCache,
		TTLs: projectservice.TTLs{
			List:    cfg.Cache.ListTTL,
			Project: cfg.Cache.ProjectTTL,
			Stats:   cfg.Cache.StatsTTL,
		},
		Uploads:    manager,
		Validator:  spreadsheet.NewValidator(cfg.Upload.MaxUploadBytes, cfg.Upload.AcceptedExtensions),
		Parser:     spreadsheet.NewParser(cfg.Parse.HeaderSynonyms, cfg.Parse.MaxNameLength),
		ChunkRate:  cfg.Upload.ChunkRateLimit,
		ChunkBurst: cfg.Upload.ChunkBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("%s %s listening on :%s (env=%s)", serviceName, cfg.App.Version, cfg.Server.Port, cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	sweeper.Stop(shutdownCtx)
}
