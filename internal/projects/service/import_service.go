package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cityworks/project-registry/internal/cache"
	"github.com/cityworks/project-registry/internal/logging"
	"github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/projects/repository"
)

// ImportService writes batches of names, skipping ones already stored.
type ImportService struct {
	store repository.Store
	cache cache.Cache
}

func NewImportService(store repository.Store, c cache.Cache) *ImportService {
	if c == nil {
		c = cache.Nop{}
	}
	return &ImportService{store: store, cache: c}
}

// ImportBatch inserts the names that are not yet stored. In-batch repeats
// collapse to their first occurrence before the store is consulted. The batch
// is all-or-nothing; a failure is reported as domain.ErrImportFailed.
func (s *ImportService) ImportBatch(ctx context.Context, names []string) (*domain.ImportResult, error) {
	logger := logging.New(ctx)
	start := time.Now()

	res := &domain.ImportResult{
		TotalRequested:  len(names),
		InsertedRecords: []domain.Project{},
		DuplicateNames:  []string{},
	}

	unique := normalizeNames(names)
	if len(unique) == 0 {
		return res, nil
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindByNames(ctx, unique)
		if err != nil {
			return err
		}

		found := make(map[string]struct{}, len(existing))
		for _, p := range existing {
			found[p.Name] = struct{}{}
		}

		fresh := make([]string, 0, len(unique))
		for _, n := range unique {
			if _, ok := found[n]; !ok {
				fresh = append(fresh, n)
			}
		}

		inserted, err := tx.InsertMany(ctx, fresh)
		if err != nil {
			return err
		}

		byName := make(map[string]domain.Project, len(inserted))
		for _, p := range inserted {
			byName[p.Name] = p
		}

		// a name missing from the insert result lost a race with a concurrent importer
		for _, n := range unique {
			if p, ok := byName[n]; ok {
				res.InsertedRecords = append(res.InsertedRecords, p)
				continue
			}
			res.DuplicateNames = append(res.DuplicateNames, n)
		}
		return nil
	})
	if err != nil {
		recordImport(0, 0, err)
		logger.Error("import_batch", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrImportFailed, err)
	}

	res.InsertedCount = len(res.InsertedRecords)
	res.DuplicateCount = len(res.DuplicateNames)

	s.cache.DeleteByPattern(ctx, cache.ProjectsPattern)

	recordImport(res.InsertedCount, res.DuplicateCount, nil)
	logger.Infof("import_batch", "requested=%d unique=%d inserted=%d duplicates=%d took=%s",
		res.TotalRequested, len(unique), res.InsertedCount, res.DuplicateCount, time.Since(start))

	return res, nil
}

// normalizeNames trims, drops blanks and keeps the first copy of each name.
func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
