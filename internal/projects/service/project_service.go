package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/cityworks/project-registry/internal/cache"
	"github.com/cityworks/project-registry/internal/logging"
	"github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/projects/repository"
)

// TTLs controls how long each kind of read stays cached.
type TTLs struct {
	List    time.Duration
	Project time.Duration
	Stats   time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{List: time.Minute, Project: 5 * time.Minute, Stats: 10 * time.Minute}
}

// ProjectService serves reads through the cache and invalidates it on every write.
type ProjectService struct {
	store repository.Store
	cache cache.Cache
	ttl   TTLs
	now   func() time.Time
}

// NewProjectService creates a new project service
func NewProjectService(store repository.Store, c cache.Cache, ttl TTLs) *ProjectService {
	if c == nil {
		c = cache.Nop{}
	}
	return &ProjectService{store: store, cache: c, ttl: ttl, now: time.Now}
}

// List returns one page of projects. The bool reports whether it came from the cache.
func (s *ProjectService) List(ctx context.Context, q domain.ListQuery) (*domain.ProjectPage, bool, error) {
	q = q.Normalize()
	q.Search = strings.TrimSpace(q.Search)
	key := cache.ListKey(q.Page, q.PageSize, q.Search)

	if page, ok := cache.GetValue[domain.ProjectPage](ctx, s.cache, key); ok {
		return &page, true, nil
	}

	var (
		items []domain.Project
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, q.Search)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.store.FindPage(gctx, q.Offset(), q.PageSize, q.Search)
		return err
	})
	if err := g.Wait(); err != nil {
		logging.New(ctx).Error("list_projects", err)
		return nil, false, fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
	}

	page := domain.ProjectPage{
		Projects:   items,
		Pagination: domain.NewPagination(q.Page, q.PageSize, total),
	}
	cache.SetValue(ctx, s.cache, key, page, s.ttl.List)

	return &page, false, nil
}

// Search is List with a required keyword.
func (s *ProjectService) Search(ctx context.Context, keyword string, page, pageSize int) (*domain.ProjectPage, bool, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, false, domain.ErrEmptyKeyword
	}
	return s.List(ctx, domain.ListQuery{Page: page, PageSize: pageSize, Search: keyword})
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*domain.Project, bool, error) {
	key := cache.ProjectKey(id)
	if p, ok := cache.GetValue[domain.Project](ctx, s.cache, key); ok {
		return &p, true, nil
	}

	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, false, err
		}
		logging.New(ctx).Error("get_project", err)
		return nil, false, fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
	}

	cache.SetValue(ctx, s.cache, key, *p, s.ttl.Project)
	return p, false, nil
}

func (s *ProjectService) Stats(ctx context.Context) (*domain.Stats, bool, error) {
	key := cache.StatsKey()
	if st, ok := cache.GetValue[domain.Stats](ctx, s.cache, key); ok {
		return &st, true, nil
	}

	total, err := s.store.Count(ctx, "")
	if err != nil {
		logging.New(ctx).Error("project_stats", err)
		return nil, false, fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
	}

	st := domain.Stats{Total: total, LastUpdated: s.now().UTC()}
	cache.SetValue(ctx, s.cache, key, st, s.ttl.Stats)
	return &st, false, nil
}

// Create stores a single name, failing with domain.ErrProjectNameExists on a duplicate.
func (s *ProjectService) Create(ctx context.Context, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	p, err := s.store.Create(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNameExists) {
			return nil, err
		}
		logging.New(ctx).Error("create_project", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
	}

	s.invalidate(ctx)
	logging.New(ctx).Infof("create_project", "id=%d name=%q", p.ID, p.Name)
	return p, nil
}

func (s *ProjectService) Delete(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, err
		}
		logging.New(ctx).Error("delete_project", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
	}

	s.invalidate(ctx)
	logging.New(ctx).Infof("delete_project", "id=%d", p.ID)
	return p, nil
}

func (s *ProjectService) invalidate(ctx context.Context) {
	s.cache.DeleteByPattern(ctx, cache.ProjectsPattern)
}

// ValidateName checks a trimmed name against the stored length bounds.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidName)
	}
	if n > domain.MaxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", domain.ErrInvalidName, domain.MaxNameLength)
	}
	return nil
}
