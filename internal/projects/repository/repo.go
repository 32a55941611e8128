package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/cityworks/project-registry/internal/projects/domain"
)

const uniqueViolation = "23505"

// Store is the relational side of the registry. Implementations must be safe
// for concurrent use outside of a transaction.
type Store interface {
	FindByNames(ctx context.Context, names []string) ([]domain.Project, error)
	// InsertMany skips names that already exist and returns only the rows it created.
	InsertMany(ctx context.Context, names []string) ([]domain.Project, error)
	FindPage(ctx context.Context, offset, limit int, search string) ([]domain.Project, error)
	Count(ctx context.Context, search string) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Project, error)
	DeleteByID(ctx context.Context, id int64) (*domain.Project, error)
	Create(ctx context.Context, name string) (*domain.Project, error)
	// InTx runs fn inside one transaction, committing only when fn returns nil.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	db *sql.DB
	q  querier
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db, q: db}
}

const projectColumns = `id, name, created_at, updated_at`

func (r *ProjectRepository) FindByNames(ctx context.Context, names []string) ([]domain.Project, error) {
	if len(names) == 0 {
		return []domain.Project{}, nil
	}

	const q = `
SELECT ` + projectColumns + `
FROM projects
WHERE name = ANY($1::text[]);
`
	rows, err := r.q.QueryContext(ctx, q, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("find projects by name: %w", err)
	}
	return scanProjects(rows)
}

func (r *ProjectRepository) InsertMany(ctx context.Context, names []string) ([]domain.Project, error) {
	if len(names) == 0 {
		return []domain.Project{}, nil
	}

	const q = `
INSERT INTO projects (name)
SELECT unnest($1::text[])
ON CONFLICT (name) DO NOTHING
RETURNING ` + projectColumns + `;
`
	rows, err := r.q.QueryContext(ctx, q, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("insert projects: %w", err)
	}
	return scanProjects(rows)
}

func (r *ProjectRepository) FindPage(ctx context.Context, offset, limit int, search string) ([]domain.Project, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if search == "" {
		const q = `
SELECT ` + projectColumns + `
FROM projects
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
		rows, err = r.q.QueryContext(ctx, q, limit, offset)
	} else {
		const q = `
SELECT ` + projectColumns + `
FROM projects
WHERE name ILIKE $1 ESCAPE '\'
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
		rows, err = r.q.QueryContext(ctx, q, likePattern(search), limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("find project page: %w", err)
	}
	return scanProjects(rows)
}

func (r *ProjectRepository) Count(ctx context.Context, search string) (int64, error) {
	var (
		n   int64
		err error
	)
	if search == "" {
		err = r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects;`).Scan(&n)
	} else {
		err = r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE name ILIKE $1 ESCAPE '\';`, likePattern(search)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*domain.Project, error) {
	const q = `
SELECT ` + projectColumns + `
FROM projects
WHERE id = $1;
`
	var p domain.Project
	err := r.q.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) DeleteByID(ctx context.Context, id int64) (*domain.Project, error) {
	const q = `
DELETE FROM projects
WHERE id = $1
RETURNING ` + projectColumns + `;
`
	var p domain.Project
	err := r.q.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("delete project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, name string) (*domain.Project, error) {
	const q = `
INSERT INTO projects (name)
VALUES ($1)
RETURNING ` + projectColumns + `;
`
	var p domain.Project
	err := r.q.QueryRowContext(ctx, q, name).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrProjectNameExists
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) InTx(ctx context.Context, fn func(tx Store) error) error {
	if r.db == nil {
		// already inside a transaction
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&ProjectRepository{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func scanProjects(rows *sql.Rows) ([]domain.Project, error) {
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// likePattern wraps s for a substring ILIKE match with wildcards escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// isUniqueViolation understands both lib/pq and pgx errors.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	return false
}
