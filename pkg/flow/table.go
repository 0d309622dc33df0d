package flow

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Table is a loaded tabular record set. The original header and cell values
// are retained verbatim so prediction output can echo the input columns.
type Table struct {
	Header []string
	Rows   [][]string

	// SkippedRows counts malformed input rows dropped at parse time.
	SkippedRows int

	index map[string]int
}

// LoadCSV reads a delimited record set. Malformed rows (unbalanced quotes,
// too many fields) are skipped rather than aborting the load; rows with too
// few fields are padded with empty values. Columns from KeepFields that are
// absent in the file are appended as empty columns.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("input file %s is empty", path)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Header: header}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Bad quoting or a torn line from the exporter. Skip the row,
			// keep the batch.
			t.SkippedRows++
			continue
		}
		switch {
		case len(row) > len(header):
			t.SkippedRows++
		case len(row) < len(header):
			padded := make([]string, len(header))
			copy(padded, row)
			t.Rows = append(t.Rows, padded)
		default:
			t.Rows = append(t.Rows, row)
		}
	}

	t.buildIndex()
	t.ensureColumns(KeepFields)
	return t, nil
}

// NewTable builds a Table from an explicit header and rows, padding or
// truncating rows to the header width. Used by the serve API where records
// arrive as JSON rather than CSV.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	for _, row := range rows {
		padded := make([]string, len(t.Header))
		copy(padded, row)
		t.Rows = append(t.Rows, padded)
	}
	t.buildIndex()
	t.ensureColumns(KeepFields)
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		t.index[name] = i
	}
}

// ensureColumns appends empty columns for any missing names.
func (t *Table) ensureColumns(names []string) {
	for _, name := range names {
		if _, ok := t.index[name]; ok {
			continue
		}
		t.index[name] = len(t.Header)
		t.Header = append(t.Header, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], "")
		}
	}
}

// HasColumn reports whether a named column exists in the input.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Field returns the cell value for a named column, or "" if absent.
func (t *Table) Field(row int, col string) string {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Records projects the table onto typed Records in row order.
func (t *Table) Records() []Record {
	hasTruth := t.hasTruthColumn()
	recs := make([]Record, len(t.Rows))
	for i := range t.Rows {
		truth := t.Field(i, ColGroundTruth)
		recs[i] = Record{
			Timestamp:   t.Field(i, ColTimestamp),
			SourceIP:    t.Field(i, ColSourceIP),
			DestIP:      t.Field(i, ColDestIP),
			URL:         t.Field(i, ColURL),
			StatusCode:  t.Field(i, ColStatusCode),
			DestPort:    t.Field(i, ColDestPort),
			Protocol:    t.Field(i, ColProtocol),
			UserAgent:   t.Field(i, ColUserAgent),
			Method:      t.Field(i, ColMethod),
			Referrer:    t.Field(i, ColReferrer),
			SrcCountry:  t.Field(i, ColSrcCountry),
			DstCountry:  t.Field(i, ColDstCountry),
			GroundTruth: truth,
			HasTruth:    hasTruth && truth != "",
		}
	}
	return recs
}

// hasTruthColumn reports whether the ground-truth column is present with at
// least one non-empty value. The loader pads missing columns with empties, so
// presence of the header alone is not enough.
func (t *Table) hasTruthColumn() bool {
	if !t.HasColumn(ColGroundTruth) {
		return false
	}
	for i := range t.Rows {
		if t.Field(i, ColGroundTruth) != "" {
			return true
		}
	}
	return false
}

// AppendColumns returns a copy of the table extended with extra columns.
// Each values slice must have one entry per row.
func (t *Table) AppendColumns(names []string, values ...[]string) (*Table, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("append columns: %d names for %d value sets", len(names), len(values))
	}
	for i, vals := range values {
		if len(vals) != len(t.Rows) {
			return nil, fmt.Errorf("append columns: column %q has %d values for %d rows", names[i], len(vals), len(t.Rows))
		}
	}

	out := &Table{
		Header:      append(append([]string(nil), t.Header...), names...),
		Rows:        make([][]string, len(t.Rows)),
		SkippedRows: t.SkippedRows,
	}
	for i, row := range t.Rows {
		extended := make([]string, 0, len(row)+len(names))
		extended = append(extended, row...)
		for _, vals := range values {
			extended = append(extended, vals[i])
		}
		out.Rows[i] = extended
	}
	out.buildIndex()
	return out, nil
}

// Select returns a copy of the table containing only the rows for which
// keep[i] is true, preserving order.
func (t *Table) Select(keep []bool) *Table {
	out := &Table{Header: append([]string(nil), t.Header...)}
	for i, row := range t.Rows {
		if i < len(keep) && keep[i] {
			out.Rows = append(out.Rows, row)
		}
	}
	out.buildIndex()
	return out
}

// WriteCSV writes the table as a full replacement of the target file.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
