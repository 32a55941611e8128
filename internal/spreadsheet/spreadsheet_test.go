package spreadsheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes values into column A of Sheet1, one per row.
func buildWorkbook(t *testing.T, values ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParser_Parse(t *testing.T) {
	p := NewParser(nil, 0)

	t.Run("header skipped and empty row reported", func(t *testing.T) {
		buf := buildWorkbook(t, "项目名称", "Road A", "", "Road A", "Road B")

		res := p.Parse(buf)

		assert.Equal(t, 5, res.TotalRows)
		assert.Equal(t, 3, res.ValidRows)
		assert.Equal(t, []string{"Road A", "Road A", "Road B"}, res.CandidateNames)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "row 3: name is empty", res.Errors[0])
	})

	t.Run("header match is case insensitive", func(t *testing.T) {
		buf := buildWorkbook(t, "  Project Name ", "Bridge")

		res := p.Parse(buf)

		assert.Equal(t, 2, res.TotalRows)
		assert.Equal(t, []string{"Bridge"}, res.CandidateNames)
		assert.Empty(t, res.Errors)
	})

	t.Run("header synonym below row one is data", func(t *testing.T) {
		buf := buildWorkbook(t, "Bridge", "name")

		res := p.Parse(buf)

		assert.Equal(t, []string{"Bridge", "name"}, res.CandidateNames)
	})

	t.Run("names are trimmed", func(t *testing.T) {
		buf := buildWorkbook(t, "  Park Renewal\t")

		res := p.Parse(buf)

		assert.Equal(t, []string{"Park Renewal"}, res.CandidateNames)
	})

	t.Run("length boundary", func(t *testing.T) {
		ok := strings.Repeat("a", 200)
		tooLong := strings.Repeat("b", 201)
		buf := buildWorkbook(t, ok, tooLong)

		res := p.Parse(buf)

		assert.Equal(t, []string{ok}, res.CandidateNames)
		assert.Equal(t, 1, res.ValidRows)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "row 2: name too long")
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		name := strings.Repeat("路", 200)
		buf := buildWorkbook(t, name)

		res := p.Parse(buf)

		assert.Equal(t, []string{name}, res.CandidateNames)
	})

	t.Run("corrupt buffer yields a single error", func(t *testing.T) {
		res := p.Parse([]byte("definitely not a spreadsheet"))

		assert.Equal(t, 0, res.TotalRows)
		assert.Empty(t, res.CandidateNames)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "failed to decode spreadsheet")
	})

	t.Run("truncated zip yields a single error", func(t *testing.T) {
		buf := buildWorkbook(t, "Road A")

		res := p.Parse(buf[:len(buf)/2])

		require.Len(t, res.Errors, 1)
		assert.Zero(t, res.ValidRows)
	})
}

func TestParser_CustomHeaders(t *testing.T) {
	p := NewParser([]string{"Scheme"}, 5)
	buf := buildWorkbook(t, "scheme", "abcde", "abcdef")

	res := p.Parse(buf)

	assert.Equal(t, []string{"abcde"}, res.CandidateNames)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "row 3: name too long (over 5 characters)", res.Errors[0])
}

func TestValidator_ValidateFile(t *testing.T) {
	v := NewValidator(0, nil)
	good := buildWorkbook(t, "Road A")

	t.Run("accepts a workbook", func(t *testing.T) {
		assert.NoError(t, v.ValidateFile("projects.xlsx", good))
	})

	t.Run("extension is checked first", func(t *testing.T) {
		err := v.ValidateFile("projects.csv", nil)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.ErrorIs(t, err, ErrUnsupportedExtension)
		assert.Contains(t, verr.Reason, ".xlsx, .xls")
	})

	t.Run("extension match ignores case", func(t *testing.T) {
		assert.NoError(t, v.ValidateFile("PROJECTS.XLSX", good))
	})

	t.Run("too large", func(t *testing.T) {
		small := NewValidator(8, []string{"xlsx"})

		err := small.ValidateFile("projects.xlsx", good)

		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("empty", func(t *testing.T) {
		err := v.ValidateFile("projects.xlsx", []byte{})

		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.EqualError(t, err, "file is empty")
	})

	t.Run("corrupt", func(t *testing.T) {
		err := v.ValidateFile("projects.xls", []byte("plain text"))

		assert.ErrorIs(t, err, ErrCorruptFile)
	})
}

func TestValidator_CheckSize(t *testing.T) {
	v := NewValidator(10*1024*1024, nil)

	assert.NoError(t, v.CheckSize(10*1024*1024))

	err := v.CheckSize(10*1024*1024 + 1)
	require.Error(t, err)
	assert.Equal(t, "file size exceeds limit (max 10 MiB)", err.Error())
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"XLSX", " .Xls ", "", "."})
	assert.Equal(t, []string{".xlsx", ".xls"}, got)
}

func TestReport(t *testing.T) {
	out := Report(Result{
		CandidateNames: []string{"Road A"},
		TotalRows:      2,
		ValidRows:      1,
		Errors:         []string{"row 2: name is empty"},
	})

	assert.Contains(t, out, "total rows: 2")
	assert.Contains(t, out, "valid rows: 1")
	assert.Contains(t, out, "1. Road A")
	assert.Contains(t, out, "- row 2: name is empty")
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", DetectContentType([]byte("hello")))
}
