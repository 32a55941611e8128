package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/projects/repository"
)

// Store is a mock for repository.Store.
type Store struct {
	mock.Mock
}

func (m *Store) FindByNames(ctx context.Context, names []string) ([]domain.Project, error) {
	args := m.Called(ctx, names)
	if list, ok := args.Get(0).([]domain.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) InsertMany(ctx context.Context, names []string) ([]domain.Project, error) {
	args := m.Called(ctx, names)
	if list, ok := args.Get(0).([]domain.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) FindPage(ctx context.Context, offset, limit int, search string) ([]domain.Project, error) {
	args := m.Called(ctx, offset, limit, search)
	if list, ok := args.Get(0).([]domain.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Count(ctx context.Context, search string) (int64, error) {
	args := m.Called(ctx, search)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Store) FindByID(ctx context.Context, id int64) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*domain.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) DeleteByID(ctx context.Context, id int64) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*domain.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Create(ctx context.Context, name string) (*domain.Project, error) {
	args := m.Called(ctx, name)
	if p, ok := args.Get(0).(*domain.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// InTx records the call and then runs fn against the mock itself.
func (m *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}
