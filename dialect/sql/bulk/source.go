package bulk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// RowSource streams the rows of an import.
//
//	for src.Next() {
//		values, err := src.Values()
//		...
//	}
//	if err := src.Err(); err != nil {
//		...
//	}
type RowSource interface {
	// Next advances to the next row. It returns false at the end of the
	// source or on a read failure reported by Err.
	Next() bool
	// Values returns the column values of the current row, in column order.
	Values() ([]any, error)
	// Err returns the read failure that stopped the iteration, if any.
	Err() error
}

// SliceSource is a RowSource over in-memory rows.
type SliceSource struct {
	rows [][]any
	i    int
}

// Rows returns a source reading the given rows.
func Rows(rows [][]any) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements RowSource.
func (s *SliceSource) Next() bool {
	if s.i >= len(s.rows) {
		return false
	}
	s.i++
	return true
}

// Values implements RowSource.
func (s *SliceSource) Values() ([]any, error) {
	return s.rows[s.i-1], nil
}

// Err implements RowSource.
func (*SliceSource) Err() error { return nil }

// CSVSource is a RowSource over CSV records. The first record holds the
// column names.
type CSVSource struct {
	// Null is the field value loaded as NULL. The zero value loads empty
	// fields as NULL.
	Null string

	r       *csv.Reader
	columns []string
	record  []string
	err     error
}

// NewCSVSource reads the header of r and returns a source over the
// remaining records.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("bulk: csv: missing header")
		}
		return nil, fmt.Errorf("bulk: csv header: %w", err)
	}
	return &CSVSource{r: cr, columns: append([]string(nil), header...)}, nil
}

// Columns returns the column names read from the header.
func (s *CSVSource) Columns() []string { return s.columns }

// Next implements RowSource.
func (s *CSVSource) Next() bool {
	if s.err != nil {
		return false
	}
	rec, err := s.r.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = fmt.Errorf("bulk: csv: %w", err)
		}
		return false
	}
	s.record = rec
	return true
}

// Values implements RowSource.
func (s *CSVSource) Values() ([]any, error) {
	if len(s.record) != len(s.columns) {
		return nil, fmt.Errorf("bulk: csv: record has %d fields, header has %d", len(s.record), len(s.columns))
	}
	values := make([]any, len(s.record))
	for i, f := range s.record {
		if f != s.Null {
			values[i] = f
		}
	}
	return values, nil
}

// Err implements RowSource.
func (s *CSVSource) Err() error { return s.err }
