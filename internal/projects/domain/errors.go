package domain

import "errors"

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrProjectNameExists = errors.New("project name already exists")
	ErrInvalidName       = errors.New("invalid project name")
	// ErrImportFailed is retryable: the batch was rolled back as a whole.
	ErrImportFailed = errors.New("import failed, retry later")
	ErrStoreFailure = errors.New("operation failed, retry later")
)

// ErrEmptyKeyword is returned by search when no keyword was given.
var ErrEmptyKeyword = errors.New("search keyword is required")
