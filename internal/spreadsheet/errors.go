package spreadsheet

import "errors"

var (
	ErrUnsupportedExtension = errors.New("file format not supported")
	ErrFileTooLarge         = errors.New("file size exceeds limit")
	ErrEmptyFile            = errors.New("file is empty")
	ErrNoWorksheet          = errors.New("no worksheet found in spreadsheet")
	ErrCorruptFile          = errors.New("spreadsheet is invalid or corrupt")
)

// ValidationError carries the user-facing reason a file was rejected.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.Err }
