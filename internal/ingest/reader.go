package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Read parses an uploaded payload into a Table, picking the decoder from the
// filename suffix. Every failure comes back as a *ParseError.
func Read(filename string, r io.Reader) (t *Table, err error) {
	kind, err := KindFromFilename(filename)
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}

	// Third-party decoders occasionally panic on hostile input.
	defer func() {
		if rec := recover(); rec != nil {
			t = nil
			err = &ParseError{Filename: filename, Kind: kind, Err: fmt.Errorf("decoder panic: %v", rec)}
		}
	}()

	switch kind {
	case KindCSV:
		t, err = readCSV(r)
	default:
		t, err = readWorkbook(r)
	}
	if err != nil {
		return nil, &ParseError{Filename: filename, Kind: kind, Err: err}
	}

	logging.For("ingest").WithFields(logrus.Fields{
		"file":    filename,
		"kind":    kind,
		"rows":    t.Len(),
		"columns": len(t.Columns),
	}).Debug("table read")
	return t, nil
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		row := Row(rec)
		if isBlank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return NewTable(header, rows), nil
}

// readWorkbook loads the first sheet of a workbook. Raw cell values are used
// so numeric amounts are not mangled by display formats.
func readWorkbook(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyFile
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		row := Row(rec)
		if isBlank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return NewTable(raw[0], rows), nil
}

// stripBOM wraps a reader to drop a leading UTF-8 BOM.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	return br
}
