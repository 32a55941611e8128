package spreadsheet

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const DefaultMaxNameLength = 200

var DefaultHeaderSynonyms = []string{"项目名称", "project name", "name", "名称"}

// Result is the outcome of parsing one spreadsheet. It is never persisted.
type Result struct {
	CandidateNames []string `json:"candidate_names"`
	TotalRows      int      `json:"total_rows"`
	ValidRows      int      `json:"valid_rows"`
	Errors         []string `json:"errors"`
}

// Parser turns the first column of the first sheet into candidate project names.
type Parser struct {
	headers       map[string]struct{}
	maxNameLength int
}

func NewParser(headerSynonyms []string, maxNameLength int) *Parser {
	if len(headerSynonyms) == 0 {
		headerSynonyms = DefaultHeaderSynonyms
	}
	if maxNameLength <= 0 {
		maxNameLength = DefaultMaxNameLength
	}

	headers := make(map[string]struct{}, len(headerSynonyms))
	for _, h := range headerSynonyms {
		headers[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	return &Parser{headers: headers, maxNameLength: maxNameLength}
}

// Parse never fails: decode problems are reported in Result.Errors.
func (p *Parser) Parse(buf []byte) Result {
	res := Result{CandidateNames: []string{}, Errors: []string{}}

	rows, err := readFirstSheet(buf)
	if err != nil {
		if errors.Is(err, ErrNoWorksheet) {
			res.Errors = append(res.Errors, ErrNoWorksheet.Error())
		} else {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to decode spreadsheet: %v", err))
		}
		return res
	}

	res.TotalRows = len(rows)

	for i, row := range rows {
		value := ""
		if len(row) > 0 {
			value = strings.TrimSpace(row[0])
		}

		if i == 0 && p.IsHeader(value) {
			continue
		}

		rowNum := i + 1
		switch {
		case value == "":
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: name is empty", rowNum))
		case utf8.RuneCountInString(value) > p.maxNameLength:
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: name too long (over %d characters)", rowNum, p.maxNameLength))
		default:
			res.CandidateNames = append(res.CandidateNames, value)
			res.ValidRows++
		}
	}

	return res
}

// IsHeader reports whether value matches a recognized header label, ignoring case.
func (p *Parser) IsHeader(value string) bool {
	_, ok := p.headers[strings.ToLower(strings.TrimSpace(value))]
	return ok
}
