package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityworks/project-registry/internal/projects/domain"
)

var columns = []string{"id", "name", "created_at", "updated_at"}

func newMock(t *testing.T) (*ProjectRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProjectRepository(db), mock
}

func TestProjectRepository_FindByNames(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	now := time.Now()

	t.Run("empty input skips the query", func(t *testing.T) {
		out, err := repo.FindByNames(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("returns matches", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE name = ANY($1::text[])")).
			WithArgs(pq.Array([]string{"A", "B"})).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(2), "B", now, now))

		out, err := repo.FindByNames(ctx, []string{"A", "B"})

		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, int64(2), out[0].ID)
		assert.Equal(t, "B", out[0].Name)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_InsertMany(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO NOTHING")).
		WithArgs(pq.Array([]string{"A", "C"})).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(10), "A", now, now).
			AddRow(int64(11), "C", now, now))

	out, err := repo.InsertMany(context.Background(), []string{"A", "C"})

	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_FindPage(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	now := time.Now()

	t.Run("no search", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
			WithArgs(10, 20).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "Road A", now, now))

		out, err := repo.FindPage(ctx, 20, 10, "")

		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("search escapes wildcards", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE name ILIKE $1")).
			WithArgs(`%50\%\_road%`, 10, 0).
			WillReturnRows(sqlmock.NewRows(columns))

		out, err := repo.FindPage(ctx, 0, 10, "50%_road")

		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("store error is wrapped", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

		_, err := repo.FindPage(ctx, 0, 10, "")

		assert.ErrorContains(t, err, "find project page")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_Count(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM projects;")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM projects WHERE name ILIKE $1")).
		WithArgs("%road%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = repo.Count(ctx, "road")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_FindAndDeleteByID(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(5), "Road A", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM projects")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(5), "Road A", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM projects")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(columns))

	p, err := repo.FindByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Road A", p.Name)

	_, err = repo.FindByID(ctx, 6)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	p, err = repo.DeleteByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID)

	_, err = repo.DeleteByID(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_Create(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects (name)")).
		WithArgs("Road A").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "Road A", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects (name)")).
		WithArgs("Road A").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects (name)")).
		WithArgs("Road B").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	p, err := repo.Create(ctx, "Road A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	_, err = repo.Create(ctx, "Road A")
	assert.ErrorIs(t, err, domain.ErrProjectNameExists)

	_, err = repo.Create(ctx, "Road B")
	assert.ErrorIs(t, err, domain.ErrProjectNameExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_InTx(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("commit", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE name = ANY")).
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO NOTHING")).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "A", now, now))
		mock.ExpectCommit()

		err := repo.InTx(ctx, func(tx Store) error {
			if _, err := tx.FindByNames(ctx, []string{"A"}); err != nil {
				return err
			}
			_, err := tx.InsertMany(ctx, []string{"A"})
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO NOTHING")).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err := repo.InTx(ctx, func(tx Store) error {
			_, err := tx.InsertMany(ctx, []string{"A"})
			return err
		})

		assert.ErrorContains(t, err, "deadlock detected")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%road%", likePattern("road"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}
