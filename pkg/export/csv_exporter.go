package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Dataset is a header row plus records keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Document is a dataset with a printed title and header lines.
type Document struct {
	Title string
	Lines []string
	Dataset
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions tunes the output for the spreadsheet tool on the receiving end. Locales that use a
// decimal comma expect ';' as the separator.
type CSVOptions struct {
	Delimiter rune
	CRLF      bool
}

// CSVExporter renders datasets as BOM-prefixed CSV.
type CSVExporter struct {
	opts CSVOptions
}

// NewCSVExporter builds a CSV exporter. A zero Delimiter means ','.
func NewCSVExporter(opts ...CSVOptions) *CSVExporter {
	e := &CSVExporter{opts: CSVOptions{Delimiter: ','}}
	if len(opts) > 0 {
		e.opts = opts[0]
		if e.opts.Delimiter == 0 {
			e.opts.Delimiter = ','
		}
	}
	return e
}

// Render writes the header row followed by one record per row. Missing cells are empty.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("csv requires at least one header")
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	w.Comma = e.opts.Delimiter
	w.UseCRLF = e.opts.CRLF

	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, h := range data.Headers {
			record[i] = neutralizeFormula(row[h])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("csv row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}

// neutralizeFormula prefixes cells a spreadsheet would evaluate. Negative numbers pass through.
func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	first, size := utf8.DecodeRuneInString(cell)
	switch first {
	case '=', '+', '@', '\t', '\r':
		return "'" + cell
	case '-':
		rest := cell[size:]
		if rest != "" && strings.Trim(rest, "0123456789.,") == "" {
			return cell
		}
		return "'" + cell
	}
	return cell
}
