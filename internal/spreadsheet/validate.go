package spreadsheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

const DefaultMaxBytes int64 = 10 * 1024 * 1024

var DefaultExtensions = []string{".xlsx", ".xls"}

// Validator checks an uploaded file before it is parsed.
type Validator struct {
	MaxBytes   int64
	Extensions []string
}

func NewValidator(maxBytes int64, extensions []string) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Validator{MaxBytes: maxBytes, Extensions: NormalizeExtensions(extensions)}
}

// NormalizeExtensions lowercases each extension and gives it a leading dot,
// so "XLSX" and ".xlsx" compare equal. Blank entries are dropped.
func NormalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}

// CheckName validates the file extension.
func (v *Validator) CheckName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range v.Extensions {
		if ext == allowed {
			return nil
		}
	}
	return &ValidationError{
		Reason: fmt.Sprintf("file format not supported, accepted formats: %s", strings.Join(v.Extensions, ", ")),
		Err:    ErrUnsupportedExtension,
	}
}

// CheckSize validates a declared or actual byte size.
func (v *Validator) CheckSize(size int64) error {
	if size > v.MaxBytes {
		return &ValidationError{
			Reason: fmt.Sprintf("file size exceeds limit (max %s)", humanize.IBytes(uint64(v.MaxBytes))),
			Err:    ErrFileTooLarge,
		}
	}
	return nil
}

// ValidateFile runs the extension, size, emptiness and decode checks in that order.
func (v *Validator) ValidateFile(name string, buf []byte) error {
	if err := v.CheckName(name); err != nil {
		return err
	}
	if err := v.CheckSize(int64(len(buf))); err != nil {
		return err
	}
	if len(buf) == 0 {
		return &ValidationError{Reason: "file is empty", Err: ErrEmptyFile}
	}

	if _, err := readFirstSheet(buf); err != nil {
		if errors.Is(err, ErrNoWorksheet) {
			return &ValidationError{Reason: ErrNoWorksheet.Error(), Err: ErrNoWorksheet}
		}
		return &ValidationError{
			Reason: fmt.Sprintf("spreadsheet is invalid or corrupt: %v", err),
			Err:    ErrCorruptFile,
		}
	}
	return nil
}
