package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cityworks/project-registry/config"
	"github.com/cityworks/project-registry/internal/bootstrap"
	"github.com/cityworks/project-registry/internal/cache"
	"github.com/cityworks/project-registry/internal/ingest"
	"github.com/cityworks/project-registry/internal/projects/repository"
	"github.com/cityworks/project-registry/internal/projects/service"
	"github.com/cityworks/project-registry/internal/spreadsheet"
)

// runParse prints the parse report of a spreadsheet without touching the database.
func runParse(path string, out io.Writer) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	v := spreadsheet.NewValidator(0, nil)
	if err := v.ValidateFile(filepath.Base(path), buf); err != nil {
		return err
	}

	res := spreadsheet.NewParser(nil, 0).Parse(buf)
	_, err = fmt.Fprintln(out, spreadsheet.Report(res))
	return err
}

// runImport validates, parses and imports a spreadsheet, then prints the outcome as JSON.
func runImport(path string, out io.Writer) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()
	db, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var c cache.Cache = cache.Nop{}
	client, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if client != nil {
		defer client.Close()
	}
	if err == nil && client != nil {
		// invalidate what the API has cached
		c = cache.NewRedisCache(client, cfg.Redis.OpTimeout)
	}

	pipeline := ingest.NewPipeline(
		spreadsheet.NewValidator(cfg.Upload.MaxUploadBytes, cfg.Upload.AcceptedExtensions),
		spreadsheet.NewParser(cfg.Parse.HeaderSynonyms, cfg.Parse.MaxNameLength),
		service.NewImportService(repository.NewProjectRepository(db.DB), c),
	)

	res, err := pipeline.Run(ctx, filepath.Base(path), buf)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
