package domain

import "time"

// Project is one registered project name. Names are unique and never edited;
// a record only goes away through a hard delete.
type Project struct {
	ID        int64     `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

const (
	MaxNameLength   = 200
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery selects one page of projects, optionally filtered by a
// case-insensitive substring of the name.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Normalize clamps the paging values into range.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type Pagination struct {
	Page       int   `json:"page" msgpack:"page"`
	PageSize   int   `json:"page_size" msgpack:"page_size"`
	Total      int64 `json:"total" msgpack:"total"`
	TotalPages int   `json:"total_pages" msgpack:"total_pages"`
}

func NewPagination(page, pageSize int, total int64) Pagination {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

type ProjectPage struct {
	Projects   []Project  `json:"projects" msgpack:"projects"`
	Pagination Pagination `json:"pagination" msgpack:"pagination"`
}

type Stats struct {
	Total       int64     `json:"total" msgpack:"total"`
	LastUpdated time.Time `json:"last_updated" msgpack:"last_updated"`
}

// ImportResult reports the outcome of one batch import.
type ImportResult struct {
	TotalRequested  int       `json:"total_requested"`
	InsertedCount   int       `json:"inserted_count"`
	DuplicateCount  int       `json:"duplicate_count"`
	InsertedRecords []Project `json:"inserted_records"`
	DuplicateNames  []string  `json:"duplicate_names"`
}
