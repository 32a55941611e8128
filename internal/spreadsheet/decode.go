package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectContentType reports the sniffed MIME type of buf.
func DetectContentType(buf []byte) string {
	return mimetype.Detect(buf).String()
}

// readFirstSheet decodes buf and returns the rows of its first worksheet.
// Missing cells come back as empty strings.
func readFirstSheet(buf []byte) ([][]string, error) {
	switch {
	case bytes.HasPrefix(buf, zipMagic):
		return readXLSX(buf)
	case bytes.HasPrefix(buf, oleMagic):
		return readXLS(buf)
	default:
		return nil, fmt.Errorf("unrecognized content type %s", DetectContentType(buf))
	}
}

func readXLSX(buf []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}

	return f.GetRows(sheets[0])
}

func readXLS(buf []byte) (rows [][]string, err error) {
	// the BIFF reader panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("xls decode: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(buf), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoWorksheet
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
