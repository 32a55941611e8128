// Package ingest runs a spreadsheet through validation, parsing and the
// batch import in one pass.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cityworks/project-registry/internal/logging"
	"github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/spreadsheet"
)

// shownErrors caps how many parse errors a NoNamesError carries.
const shownErrors = 5

var ErrNoNames = errors.New("no valid project names found in spreadsheet")

// NoNamesError is returned when a spreadsheet parses but yields nothing to import.
type NoNamesError struct {
	Errors []string
	More   bool
}

func (e *NoNamesError) Error() string {
	if len(e.Errors) == 0 {
		return ErrNoNames.Error()
	}
	msg := ErrNoNames.Error() + ": " + strings.Join(e.Errors, "; ")
	if e.More {
		msg += "; ..."
	}
	return msg
}

func (e *NoNamesError) Unwrap() error { return ErrNoNames }

// Importer is the write side of the project registry.
type Importer interface {
	ImportBatch(ctx context.Context, names []string) (*domain.ImportResult, error)
}

type FileInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SizeText    string `json:"size_text"`
	ContentType string `json:"content_type"`
}

type Timings struct {
	ParseMS  int64 `json:"parse_ms"`
	ImportMS int64 `json:"import_ms"`
	TotalMS  int64 `json:"total_ms"`
}

type Outcome struct {
	File    FileInfo             `json:"file"`
	Parse   spreadsheet.Result   `json:"parsing"`
	Import  *domain.ImportResult `json:"import"`
	Message string               `json:"message"`
	Timings Timings              `json:"timings"`
}

type Pipeline struct {
	validator *spreadsheet.Validator
	parser    *spreadsheet.Parser
	importer  Importer
	now       func() time.Time
}

func NewPipeline(v *spreadsheet.Validator, p *spreadsheet.Parser, importer Importer) *Pipeline {
	return &Pipeline{validator: v, parser: p, importer: importer, now: time.Now}
}

// Validate runs only the file checks.
func (p *Pipeline) Validate(name string, buf []byte) error {
	return p.validator.ValidateFile(name, buf)
}

// Parse validates and parses without importing.
func (p *Pipeline) Parse(ctx context.Context, name string, buf []byte) (spreadsheet.Result, error) {
	if err := p.validator.ValidateFile(name, buf); err != nil {
		return spreadsheet.Result{}, err
	}
	res := p.parser.Parse(buf)
	logging.New(ctx).Infof("parse_spreadsheet", "file=%q report:\n%s", name, spreadsheet.Report(res))
	return res, nil
}

// Run validates, parses and imports one file.
func (p *Pipeline) Run(ctx context.Context, name string, buf []byte) (*Outcome, error) {
	logger := logging.New(ctx)
	start := p.now()

	res, err := p.Parse(ctx, name, buf)
	if err != nil {
		logger.Warnf("ingest", "file=%q rejected: %v", name, err)
		return nil, err
	}
	parsed := p.now()

	if len(res.CandidateNames) == 0 {
		shown := res.Errors
		if len(shown) > shownErrors {
			shown = shown[:shownErrors]
		}
		return nil, &NoNamesError{Errors: shown, More: len(res.Errors) > shownErrors}
	}

	imp, err := p.importer.ImportBatch(ctx, res.CandidateNames)
	if err != nil {
		return nil, err
	}
	done := p.now()

	out := &Outcome{
		File: FileInfo{
			Name:        name,
			Size:        int64(len(buf)),
			SizeText:    humanize.IBytes(uint64(len(buf))),
			ContentType: spreadsheet.DetectContentType(buf),
		},
		Parse:  res,
		Import: imp,
		Timings: Timings{
			ParseMS:  parsed.Sub(start).Milliseconds(),
			ImportMS: done.Sub(parsed).Milliseconds(),
			TotalMS:  done.Sub(start).Milliseconds(),
		},
	}
	out.Message = Summary(name, res, imp)

	logger.Infof("ingest", "file=%q size=%s inserted=%d duplicates=%d took=%dms",
		name, out.File.SizeText, imp.InsertedCount, imp.DuplicateCount, out.Timings.TotalMS)
	return out, nil
}

// Summary is the one-line human description of an ingest.
func Summary(name string, res spreadsheet.Result, imp *domain.ImportResult) string {
	parts := []string{
		fmt.Sprintf("processed %q", name),
		fmt.Sprintf("extracted %d names from %d rows", len(res.CandidateNames), res.TotalRows),
		fmt.Sprintf("added %d new projects", imp.InsertedCount),
	}
	if imp.DuplicateCount > 0 {
		parts = append(parts, fmt.Sprintf("skipped %d duplicates", imp.DuplicateCount))
	}
	if len(res.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", len(res.Errors)))
	}
	return strings.Join(parts, ", ")
}
