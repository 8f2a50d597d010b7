// Package dataset loads tabular training data from .xlsx or .csv files into
// a Frame of raw string cells. The first row is always the header.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("dataset: unsupported file format")
	ErrNoHeader          = errors.New("dataset: missing header row")
	ErrUnknownColumn     = errors.New("dataset: unknown column")
)

// missingMarkers are the cell spellings treated as absent values.
var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
}

// IsMissing reports whether a raw cell holds no value.
func IsMissing(cell string) bool {
	_, ok := missingMarkers[strings.TrimSpace(cell)]
	return ok
}

type Frame struct {
	Columns []string
	Rows    [][]string
}

// Load picks a reader from the file extension.
func Load(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		defer file.Close()
		return ReadCSV(file)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(path string) (*Frame, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	// Raw values so number formats such as "#,##0" do not leak into cells.
	rows, err := book.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return build(rows)
}

func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return build(rows)
}

func build(rows [][]string) (*Frame, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]struct{}, len(header))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrNoHeader, i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", name)
		}
		seen[name] = struct{}{}
		header[i] = name
	}

	f := &Frame{Columns: header}
	for _, raw := range rows[1:] {
		if blank(raw) {
			continue
		}
		if len(raw) > len(header) {
			return nil, fmt.Errorf("dataset: row %d has %d cells, header has %d", len(f.Rows)+2, len(raw), len(header))
		}
		// spreadsheet readers drop trailing empty cells
		row := make([]string, len(header))
		for i, cell := range raw {
			row[i] = strings.TrimSpace(cell)
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of a column or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of one column's cells.
func (f *Frame) Column(name string) ([]string, error) {
	i := f.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	out := make([]string, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// SetColumn overwrites a column in place.
func (f *Frame) SetColumn(name string, values []string) error {
	i := f.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if len(values) != len(f.Rows) {
		return fmt.Errorf("dataset: column %q needs %d values, got %d", name, len(f.Rows), len(values))
	}
	for r := range f.Rows {
		f.Rows[r][i] = values[r]
	}
	return nil
}

// Drop returns a new frame without the named column. Dropping an absent
// column is a no-op.
func (f *Frame) Drop(name string) *Frame {
	i := f.Index(name)
	if i < 0 {
		return f
	}
	out := &Frame{
		Columns: append(append([]string(nil), f.Columns[:i]...), f.Columns[i+1:]...),
		Rows:    make([][]string, len(f.Rows)),
	}
	for r, row := range f.Rows {
		out.Rows[r] = append(append([]string(nil), row[:i]...), row[i+1:]...)
	}
	return out
}
