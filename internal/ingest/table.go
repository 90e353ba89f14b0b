// Package ingest reads uploaded spreadsheets into in-memory tables.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the tabular encoding of an upload.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindXLS  Kind = "xls"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
)

// AcceptedExtensions lists the suffixes the upload forms offer.
var AcceptedExtensions = []string{".xlsx", ".xls", ".csv"}

// KindFromFilename dispatches on the filename suffix, case-insensitively.
func KindFromFilename(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv":
		return KindCSV, nil
	case ".xlsx":
		return KindXLSX, nil
	case ".xls":
		return KindXLS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ParseError reports why an upload could not be turned into a Table.
type ParseError struct {
	Filename string
	Kind     Kind
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not read %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row holds cell values in column order. Rows may be shorter than the header.
type Row []string

// Get returns the cell at idx, or "" when the row does not reach it.
func (r Row) Get(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Table is an ordered sequence of rows under a header. Column names are
// lower-cased and trimmed when the table is built.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable normalizes the header names and wraps the rows.
func NewTable(header []string, rows []Row) *Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = normalizeHeader(h)
	}
	return &Table{Columns: cols, Rows: rows}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of an exact (normalized) column name.
func (t *Table) ColumnIndex(name string) int {
	name = normalizeHeader(name)
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

func isBlank(r Row) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
